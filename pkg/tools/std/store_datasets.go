package std

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/datasus"
	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/s3storage"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/sragdb"
	"github.com/ilkoid/srag-ai/pkg/tools"
	"github.com/ilkoid/srag-ai/pkg/utils"
)

// StoreDatasetsTool — инструмент загрузки выгрузок DataSus в локальную базу.
//
// Находит CSV выгрузки на портале, скачивает, парсит и идемпотентно
// вставляет в sqlite. При включённом S3 зеркале годы читаются из
// бакета, а новые выгрузки выкладываются туда же.
type StoreDatasetsTool struct {
	client      *datasus.Client
	store       *sragdb.Store
	s3          s3storage.ClientInterface // nil если зеркало выключено
	emitter     events.Emitter            // nil если прогресс не нужен
	invalidate  func()                    // сброс кэша датасета в state
	description string
}

// NewStoreDatasetsTool создает инструмент загрузки датасета.
//
// invalidate вызывается после успешной вставки новых записей.
func NewStoreDatasetsTool(
	client *datasus.Client,
	store *sragdb.Store,
	s3Client s3storage.ClientInterface,
	invalidate func(),
	cfg config.ToolConfig,
) *StoreDatasetsTool {
	return &StoreDatasetsTool{
		client:      client,
		store:       store,
		s3:          s3Client,
		invalidate:  invalidate,
		description: cfg.Description,
	}
}

// SetEmitter подключает эмиттер для событий прогресса загрузки.
func (t *StoreDatasetsTool) SetEmitter(e events.Emitter) {
	t.emitter = e
}

func (t *StoreDatasetsTool) Definition() tools.ToolDefinition {
	description := t.description
	if description == "" {
		description = "Скачивает датасет SRAG (тяжёлые острые респираторные заболевания, включая COVID-19) с портала DataSus и сохраняет в локальную базу. Вызывай когда пользователь просит получить, скачать или обновить данные."
	}
	return tools.ToolDefinition{
		Name:        "store_datasets",
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"years": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Годы выгрузок для загрузки. Доступны 2021-2025. Пустой список или отсутствие параметра — все доступные годы.",
				},
			},
			"required": []string{},
		},
	}
}

func (t *StoreDatasetsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Years []int `json:"years"`
	}
	if argsJSON != "" && argsJSON != "{}" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	wanted := make(map[int]bool, len(args.Years))
	for _, y := range args.Years {
		wanted[y] = true
	}

	links, err := t.client.ListDatasets(ctx)
	if err != nil {
		return "", fmt.Errorf("list datasets: %w (%s)", err, t.client.ClassifyError(err).HumanMessage())
	}

	mirrored := t.mirroredYears(ctx)

	type yearStats struct {
		Year     int `json:"year"`
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Skipped  int `json:"skipped_rows"`
	}

	var stats []yearStats
	totalInserted := 0
	// Сброс кэша и при частичной загрузке: ошибка на позднем годе
	// не должна оставить state с устаревшим датасетом
	defer func() {
		if totalInserted > 0 && t.invalidate != nil {
			t.invalidate()
		}
	}()

	for _, link := range links {
		if len(wanted) > 0 && !wanted[link.Year] {
			continue
		}

		// Зеркальная копия дешевле повторного скачивания с портала
		records, parse, fromMirror := t.fromMirror(ctx, link.Year, mirrored)
		if !fromMirror {
			utils.Info("Fetching dataset", "year", link.Year, "url", link.URL)
			var err error
			records, parse, err = t.client.FetchYear(ctx, link)
			if err != nil {
				return "", fmt.Errorf("fetch year %d: %w", link.Year, err)
			}
		}

		inserted, err := t.store.InsertBatch(ctx, records)
		if err != nil {
			return "", fmt.Errorf("store year %d: %w", link.Year, err)
		}
		totalInserted += inserted

		if t.s3 != nil && !fromMirror {
			if err := t.mirror(ctx, link.Year, records); err != nil {
				// Зеркало — вспомогательное, его ошибки не прерывают загрузку
				utils.Warn("Mirror upload failed", "year", link.Year, "error", err)
			}
		}

		if t.emitter != nil {
			t.emitter.Emit(ctx, events.Event{
				Type:      events.EventIngest,
				Data:      events.IngestData{Year: link.Year, Inserted: inserted, Skipped: parse.Skipped},
				Timestamp: time.Now(),
			})
		}

		stats = append(stats, yearStats{
			Year:     link.Year,
			Parsed:   parse.Parsed,
			Inserted: inserted,
			Skipped:  parse.Skipped,
		})
		utils.Info("Stored dataset", "year", link.Year, "parsed", parse.Parsed, "inserted", inserted, "skipped", parse.Skipped)
	}

	if len(stats) == 0 {
		available := make([]int, 0, len(links))
		for _, link := range links {
			available = append(available, link.Year)
		}
		return "", fmt.Errorf("no datasets matched requested years %v, available: %v", args.Years, available)
	}

	message := fmt.Sprintf("Загружено выгрузок: %d, новых записей: %d.", len(stats), totalInserted)
	return marshalPayload(message, stats, srag.TextResult())
}

// mirroredYears возвращает годы, уже лежащие в S3 зеркале.
//
// Ошибки зеркала не прерывают загрузку: пустая карта означает
// что все годы пойдут через портал.
func (t *StoreDatasetsTool) mirroredYears(ctx context.Context) map[int]bool {
	if t.s3 == nil {
		return nil
	}
	objects, err := t.s3.ListMirrored(ctx)
	if err != nil {
		utils.Warn("Mirror listing failed", "error", err)
		return nil
	}
	years := make(map[int]bool, len(objects))
	for _, obj := range objects {
		if y := s3storage.MirrorYear(obj.Key); y != 0 {
			years[y] = true
		}
	}
	return years
}

// fromMirror пробует прочитать выгрузку года из S3 зеркала.
func (t *StoreDatasetsTool) fromMirror(ctx context.Context, year int, mirrored map[int]bool) ([]srag.Record, *datasus.ParseStats, bool) {
	if !mirrored[year] {
		return nil, nil, false
	}

	raw, err := t.s3.Download(ctx, s3storage.MirrorKey(year))
	if err != nil {
		utils.Warn("Mirror download failed, falling back to portal", "year", year, "error", err)
		return nil, nil, false
	}

	records, parse, err := datasus.ParseCSV(bytes.NewReader(raw), year)
	if err != nil {
		utils.Warn("Mirror CSV parse failed, falling back to portal", "year", year, "error", err)
		return nil, nil, false
	}

	utils.Info("Loaded dataset from mirror", "year", year, "parsed", parse.Parsed)
	return records, parse, true
}

// mirror выкладывает нормализованный CSV года в S3 зеркало.
func (t *StoreDatasetsTool) mirror(ctx context.Context, year int, records []srag.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(srag.Columns); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.State,
			rec.Notified.UTC().Format(srag.DateLayout),
			strconv.Itoa(rec.Week),
			strconv.Itoa(rec.Evolution),
			strconv.Itoa(rec.ICU),
			strconv.Itoa(rec.Vaccinated),
			strconv.Itoa(rec.Hospitalized),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return t.s3.Upload(ctx, s3storage.MirrorKey(year), &buf, int64(buf.Len()))
}
