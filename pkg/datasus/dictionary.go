package datasus

// DictionaryEntry — описание одной колонки датасета SRAG.
type DictionaryEntry struct {
	Column      string `json:"column"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// Dictionary возвращает словарь данных по используемым колонкам.
//
// Полный официальный словарь — PDF на портале (DictionaryURL),
// здесь продублированы только колонки, с которыми работает агент.
func Dictionary() []DictionaryEntry {
	return []DictionaryEntry{
		{
			Column:      "SG_UF_NOT",
			Description: "Федеральная единица (штат), где зарегистрирован случай",
			Values:      "Двухбуквенный код UF: SP, RJ, PE, ...",
		},
		{
			Column:      "DT_NOTIFIC",
			Description: "Дата регистрации случая",
			Values:      "YYYY-MM-DD",
		},
		{
			Column:      "SEM_NOT",
			Description: "Эпидемиологическая неделя регистрации",
			Values:      "1-53",
		},
		{
			Column:      "EVOLUCAO",
			Description: "Исход случая",
			Values:      "1=выздоровление, 2=смерть от SRAG, 3=смерть от других причин, 9=не заполнено, -1=пропуск",
		},
		{
			Column:      "UTI",
			Description: "Госпитализация в отделение интенсивной терапии",
			Values:      "1=да, 2=нет, 9=не заполнено, -1=пропуск",
		},
		{
			Column:      "VACINA_COV",
			Description: "Вакцинация от COVID-19",
			Values:      "1=да, 2=нет, 9=не заполнено, -1=пропуск",
		},
		{
			Column:      "HOSPITAL",
			Description: "Госпитализация по поводу SRAG",
			Values:      "1=да, 2=нет, 9=не заполнено, -1=пропуск",
		},
	}
}
