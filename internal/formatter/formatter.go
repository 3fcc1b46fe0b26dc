package formatter

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maine/publishing_radio/internal/news"
)

// Имена файлов внутри каталога выпуска.
const (
	SummaryFile  = "summary.txt"
	ArticlesFile = "articles.txt"
	ScriptFile   = "script.txt"
	HTMLFile     = "summary.html"
	AudioFile    = "podcast.mp3"
)

const (
	separator     = "=================================================="
	displayLayout = "2006年01月02日 15:04"
)

// beijing - время в файлах выпуска показывается по Пекину (UTC+8).
var beijing = time.FixedZone("UTC+8", 8*60*60)

// Writer пишет артефакты выпуска в каталог прогона.
type Writer struct{}

// NewWriter создаёт экземпляр.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteRun создаёт каталог dir и записывает в него резюме, тексты статей,
// текст выпуска и HTML-страницу с резюме. Возвращает пути записанных файлов.
func (w *Writer) WriteRun(dir string, summaries []news.Summary, script string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	htmlPage, err := renderHTML(summaries)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{SummaryFile, []byte(SummaryText(summaries))},
		{ArticlesFile, []byte(ArticlesText(summaries))},
		{ScriptFile, []byte(script)},
		{HTMLFile, htmlPage},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteAudio сохраняет аудио выпуска и возвращает путь к файлу.
func (w *Writer) WriteAudio(dir string, audio []byte) (string, error) {
	path := filepath.Join(dir, AudioFile)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return path, nil
}

// SummaryText - содержимое summary.txt.
func SummaryText(summaries []news.Summary) string {
	var sb strings.Builder
	sb.WriteString("出版行业新闻总结\n\n")
	for i, s := range summaries {
		writeHeader(&sb, i+1, s)
		fmt.Fprintf(&sb, "总结：\n%s\n", s.SummaryText)
		sb.WriteString("\n" + separator + "\n\n")
	}
	return sb.String()
}

// ArticlesText - содержимое articles.txt (полные тексты статей).
func ArticlesText(summaries []news.Summary) string {
	var sb strings.Builder
	sb.WriteString("出版行业新闻原文\n\n")
	for i, s := range summaries {
		writeHeader(&sb, i+1, s)
		content := s.OriginalContent
		if strings.TrimSpace(content) == "" {
			content = "未获取到原文"
		}
		fmt.Fprintf(&sb, "原文：\n%s\n", content)
		sb.WriteString("\n" + separator + "\n\n")
	}
	return sb.String()
}

func writeHeader(sb *strings.Builder, n int, s news.Summary) {
	fmt.Fprintf(sb, "文章%d\n", n)
	fmt.Fprintf(sb, "标题：%s\n", s.Title)
	fmt.Fprintf(sb, "来源：%s\n", s.Source)
	fmt.Fprintf(sb, "原文链接：%s\n", s.Link)
	fmt.Fprintf(sb, "发布时间：%s\n", FormatTime(s.PublishedAt))
}

// FormatTime переводит время публикации в вид "2006年01月02日 15:04" по Пекину.
// Нераспознанное значение возвращается как есть.
func FormatTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if t, err := time.ParseInLocation(news.CacheTimeLayout, value, time.Local); err == nil {
		return t.In(beijing).Format(displayLayout)
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(beijing).Format(displayLayout)
		}
	}
	return value
}

var pageTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"inc":        func(i int) int { return i + 1 },
	"formatTime": FormatTime,
	"paragraphs": func(text string) []string {
		var out []string
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	},
}).Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>出版行业新闻总结</title>
</head>
<body>
<h1>出版行业新闻总结</h1>
{{- range $i, $s := . }}
<article>
<h2>{{ inc $i }}. {{ $s.Title }}</h2>
<p class="meta">来源：{{ $s.Source }} · 发布时间：{{ formatTime $s.PublishedAt }} · <a href="{{ $s.Link }}">原文链接</a></p>
{{- range paragraphs $s.SummaryText }}
<p>{{ . }}</p>
{{- end }}
</article>
{{- end }}
</body>
</html>
`))

func renderHTML(summaries []news.Summary) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, summaries); err != nil {
		return nil, fmt.Errorf("render summary html: %w", err)
	}
	return buf.Bytes(), nil
}
