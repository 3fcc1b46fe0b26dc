package filter

import (
	"strings"

	"github.com/maine/publishing_radio/internal/config"
	"github.com/maine/publishing_radio/internal/news"
)

// Decision - результат классификации статьи.
type Decision struct {
	Accept bool
	Reason news.FilterReason // пусто, если статья принята
}

// Filter отсеивает короткие статьи, вакансии, анонсы совещаний и т.п.
// Классификация не имеет побочных эффектов и зависит только от настроек.
type Filter struct {
	minLength      int
	prefixWindow   int
	titleKeywords  []string
	prefixKeywords []string
}

// New создаёт фильтр с правилами из конфигурации.
func New(cfg config.Filter) *Filter {
	return &Filter{
		minLength:      cfg.MinContentLength,
		prefixWindow:   cfg.PrefixWindow,
		titleKeywords:  nonEmpty(cfg.TitleKeywords),
		prefixKeywords: nonEmpty(cfg.ContentPrefixKeywords),
	}
}

// Classify решает, принимать ли статью.
// Порядок проверок: длина текста, ключевые слова в заголовке, ключевые слова в начале текста.
// Длина и начало текста считаются в рунах по тексту как есть, пробелы по краям не отбрасываются.
func (f *Filter) Classify(title, body string) Decision {
	content := []rune(body)

	if len(content) < f.minLength {
		return reject(news.ReasonTooShort)
	}

	for _, kw := range f.titleKeywords {
		if strings.Contains(title, kw) {
			return reject(news.ReasonTitleKeyword.WithTerm(kw))
		}
	}

	prefix := content
	if f.prefixWindow > 0 && len(prefix) > f.prefixWindow {
		prefix = prefix[:f.prefixWindow]
	}
	head := string(prefix)
	for _, kw := range f.prefixKeywords {
		if strings.Contains(head, kw) {
			return reject(news.ReasonContentPrefixKeyword.WithTerm(kw))
		}
	}

	return Decision{Accept: true}
}

func reject(reason news.FilterReason) Decision {
	return Decision{Accept: false, Reason: reason}
}

func nonEmpty(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
