package llm

import (
	"fmt"
	"strings"

	"github.com/maine/publishing_radio/internal/news"
)

const (
	// ScriptOpening и ScriptClosing - фиксированные начало и конец выпуска.
	ScriptOpening = "各位听众，这里是出版电台。今天我们为您带来出版行业的最新资讯。"
	ScriptClosing = "感谢收听出版电台，我们下期再见。"

	// DefaultHighlight используется, если заголовок выпуска сгенерировать не удалось.
	DefaultHighlight = "今日出版业热点聚焦"
)

func summaryPrompt(article news.Article) string {
	return fmt.Sprintf(`请将这篇文章总结为结构清晰的内容，使用以下格式：

一、主要观点
1. 第一个观点
2. 第二个观点
3. 第三个观点

二、关键细节
1. 细节一
2. 细节二
3. 细节三

三、结论启示
1. 主要结论
2. 实践建议

要求：
- 使用中文数字标记大标题（一、二、三），使用阿拉伯数字标记具体内容（1. 2. 3.）
- 语言正式且简洁，适合书面阅读，避免口语化表达
- 每部分控制在200-300字，确保简明扼要但包含必要背景和核心信息
- 段落之间保持一个空行，不要使用特殊符号（如*、#、-）
- 根据文章内容提取关键信息，确保不看原文也能理解

文章标题：%s
作者：%s
内容：%s`, article.Title, article.Author, article.Content)
}

func scriptPrompt(summaries []news.Summary) string {
	parts := make([]string, 0, len(summaries))
	for i, s := range summaries {
		parts = append(parts, fmt.Sprintf("文章%d:\n标题: %s\n来源: %s\n总结:\n%s", i+1, s.Title, s.Source, s.SummaryText))
	}

	return fmt.Sprintf(`你是出版电台的主播，擅长制作生动的播报内容。你需要将以下%d篇文章整理成适合朗读的播报内容。

内容材料：
%s

要求：
1. 开场语固定为："%s"
2. 每篇文章的播报需包含：
   - 以自然、亲切的方式介绍文章标题和来源（如"今天我们先来看一篇来自XX的文章，标题是……"）
   - 核心观点和关键信息（200-300字），语气生动，突出有趣细节
   - 销量或营销亮点（如果内容中有），用引导性语言呈现（如"值得一提的是……"）
3. 文章之间使用自然过渡语连接（如"接下来"、"另外"、"让我们转向"），保持流畅
4. 使用播音腔语气，正式但不呆板，适当加入提问或引导（如"你知道吗？"、"这意味着什么呢？"）以吸引听众
5. 通过语气和停顿来控制节奏，不要在文本中加入任何控制词（如"稍停"、"停顿"等）
6. 结尾固定为："%s"
7. 不要使用任何标点符号以外的标记（如*、#、1. 2. 3.），确保文本适合直接朗读
8. 必须处理所有提供的文章

请直接输出播报内容。`, len(summaries), strings.Join(parts, "\n\n"), ScriptOpening, ScriptClosing)
}

func highlightPrompt(summaries []news.Summary) string {
	titles := make([]string, 0, len(summaries))
	for _, s := range summaries {
		titles = append(titles, s.Title)
	}

	return fmt.Sprintf(`请为这期出版电台播报生成一个吸引人的标题。

今天的文章包括：
%s

要求：
1. 标题要简短有力（15字以内）
2. 突出最有趣或最重要的内容
3. 引发听众兴趣
4. 不要使用"重磅"、"震撼"等夸张词汇
5. 可以适当提问或设置悬念
6. 需要结合所有文章的内容，找出共同点或最有价值的观点

请直接输出标题，不要有任何其他内容。`, strings.Join(titles, "\n"))
}
