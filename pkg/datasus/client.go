// Package datasus — SDK для открытых данных DataSus (SRAG).
//
// Это **API SDK**, а не «тупой» HTTP клиент:
//   - HTTP клиент с retry, rate limiting и классификацией ошибок
//   - Обнаружение CSV выгрузок на странице датасета (scraping)
//   - Стриминговый парсинг CSV с подсчётом битых строк
//
// Паттерн использования:
//   - pkg/datasus — переиспользуемый SDK
//   - pkg/tools/std — тонкие обёртки для LLM function calling
package datasus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/srag"
)

// ErrorType представляет тип ошибки при работе с порталом DataSus.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrTimeout
	ErrNetwork
	ErrRateLimit
	ErrNotFound
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	case ErrNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrTimeout:
		return "Превышено время ожидания. Портал DataSus не отвечает или проблемы с сетью."
	case ErrNetwork:
		return "Портал DataSus недоступен. Проверьте подключение к интернету."
	case ErrRateLimit:
		return "Превышен лимит запросов к порталу. Подождите перед следующей попыткой."
	case ErrNotFound:
		return "Выгрузка не найдена на портале. Возможно, структура страницы датасета изменилась."
	default:
		return "Неизвестная ошибка при подключении к порталу DataSus."
	}
}

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DatasetLink — найденная на странице датасета CSV выгрузка одного года.
type DatasetLink struct {
	Year int
	URL  string
}

// Client — клиент открытых данных DataSus.
type Client struct {
	baseURL       string
	dictionaryURL string
	userAgent     string
	httpClient    HTTPClient
	retryAttempts int
	demo          bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // endpoint → limiter
	rateLim  int
	burst    int
}

// NewFromConfig создает клиент из конфигурации.
//
// Поля с нулевыми значениями используют дефолты через GetDefaults().
func NewFromConfig(cfg config.DataSusConfig) (*Client, error) {
	cfg = cfg.GetDefaults()

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid datasus.timeout format: %w", err)
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		dictionaryURL: cfg.DictionaryURL,
		userAgent:     cfg.UserAgent,
		retryAttempts: cfg.RetryAttempts,
		demo:          cfg.Demo,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiters: make(map[string]*rate.Limiter),
		rateLim:  cfg.RateLimit,
		burst:    cfg.BurstLimit,
	}, nil
}

// IsDemo проверяет что клиент работает в demo режиме (без сети).
func (c *Client) IsDemo() bool {
	return c.demo
}

// DictionaryURL возвращает ссылку на официальный словарь данных.
func (c *Client) DictionaryURL() string {
	return c.dictionaryURL
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
func (c *Client) ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsgLower, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") {
		return ErrTimeout
	}
	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") {
		return ErrNetwork
	}
	if strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "Too Many Requests") {
		return ErrRateLimit
	}
	if strings.Contains(errMsg, "404") ||
		strings.Contains(errMsgLower, "not found") {
		return ErrNotFound
	}

	return ErrUnknown
}

var yearRe = regexp.MustCompile(`(\d{4})`)

// ListDatasets находит CSV выгрузки на странице датасета.
//
// Страница содержит dropdown ссылки на S3; год выгрузки берётся из
// первого четырёхзначного числа в URL. В demo режиме возвращает
// синтетические ссылки для всех доступных годов.
func (c *Client) ListDatasets(ctx context.Context) ([]DatasetLink, error) {
	if c.demo {
		links := make([]DatasetLink, 0, len(srag.ValidYears))
		for _, y := range srag.ValidYears {
			links = append(links, DatasetLink{Year: y, URL: fmt.Sprintf("demo://srag/%d", y)})
		}
		return links, nil
	}

	body, err := c.get(ctx, "list_datasets", c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset page: %w", err)
	}
	defer body.Close()

	hrefs, err := extractDropdownLinks(body)
	if err != nil {
		return nil, fmt.Errorf("parse dataset page: %w", err)
	}

	var links []DatasetLink
	seen := make(map[int]bool)
	for _, href := range hrefs {
		if !strings.Contains(href, "s3") {
			continue
		}
		m := yearRe.FindString(href)
		if m == "" {
			continue
		}
		year, _ := strconv.Atoi(m)
		if !srag.IsValidYear(year) || seen[year] {
			continue
		}
		seen[year] = true
		links = append(links, DatasetLink{Year: year, URL: href})
	}

	if len(links) == 0 {
		return nil, fmt.Errorf("no CSV links found on dataset page %s", c.baseURL)
	}
	return links, nil
}

// FetchYear скачивает и парсит выгрузку одного года.
//
// В demo режиме возвращает детерминированный сгенерированный датасет.
func (c *Client) FetchYear(ctx context.Context, link DatasetLink) ([]srag.Record, *ParseStats, error) {
	if c.demo {
		records := GenerateDemo(link.Year)
		return records, &ParseStats{TotalRows: len(records), Parsed: len(records)}, nil
	}

	body, err := c.get(ctx, "fetch_csv", link.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("download csv for %d: %w", link.Year, err)
	}
	defer body.Close()

	return ParseCSV(body, link.Year)
}

// get выполняет GET запрос с retry логикой и rate limiting.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) (io.ReadCloser, error) {
	limiter := c.getOrCreateLimiter(endpoint)

	var lastErr error

	for i := 0; i < c.retryAttempts; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue // Сетевая ошибка, пробуем еще
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := 1 * time.Second
			if s := resp.Header.Get("Retry-After"); s != "" {
				if sec, err := strconv.Atoi(s); err == nil {
					retryAfter = time.Duration(sec) * time.Second
				}
			}
			resp.Body.Close()

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfter):
				continue
			}
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("datasus error: status %d, body: %s", resp.StatusCode, string(body))
		}

		return resp.Body, nil
	}

	return nil, fmt.Errorf("max retries exceeded, last error: %v", lastErr)
}

// getOrCreateLimiter возвращает существующий limiter для endpoint или создаёт новый.
func (c *Client) getOrCreateLimiter(endpoint string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[endpoint]; exists {
		return limiter
	}

	// rateLim в запросах/минуту → rate.Limit в запросах/секунду
	ratePerSec := float64(c.rateLim) / 60.0
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), c.burst)
	c.limiters[endpoint] = limiter

	return limiter
}
