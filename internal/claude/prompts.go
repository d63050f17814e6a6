package claude

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt frames the model as a Xiaohongshu copy editor.
const DefaultSystemPrompt = "你是一名资深的小红书内容编辑，擅长拆解爆款笔记的结构并进行仿写。" +
	"回答使用简体中文，不使用表情符号，不写客套话。"

const (
	thinkingHeader = "### 思考过程："
	resultHeader   = "### 结果："
	noteMarkerFmt  = "===笔记%d==="
)

// GenerateCount is how many rewritten notes a generate request asks for.
const GenerateCount = 5

var analyzeSections = []string{
	"1. 标题解构：组成部分、关键词与吸引点、修辞手法",
	"2. 开场白分析：首段写法与句式、如何建立共鸣或制造好奇",
	"3. 正文结构：每段的目的、长短与节奏、衔接与过渡",
	"4. 叙事手法：故事元素、情绪调动、信任感的建立",
	"5. 关键词与修饰词：高频形容词副词、强调词、数字与细节的呈现",
	"6. 互动设计：引导语句式、设问与悬念、评论转化话术",
	"7. 套用模板：把全文改写成可复用模板，用[方括号]标出需要替换的内容",
}

// BuildAnalyzePrompt asks for a structural breakdown of content.
func BuildAnalyzePrompt(content string, deep, thinking bool) string {
	var b strings.Builder
	if thinking {
		b.WriteString("请拆解下面这篇小红书笔记的文案结构。先写出分析思路，再给出结论，按以下格式输出：\n\n")
		b.WriteString(thinkingHeader + "\n在这里展示你观察到的结构特点、句式模式和表达技巧。\n\n")
		b.WriteString(resultHeader + "\n在这里给出最终的结构化分析，包含：\n")
	} else {
		b.WriteString("请拆解下面这篇小红书笔记的文案结构，细化到句式和表达方式，包含：\n")
	}
	for _, s := range analyzeSections {
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n笔记内容：\n\"\"\"\n")
	b.WriteString(content)
	b.WriteString("\n\"\"\"\n\n")
	if deep {
		b.WriteString("请做非常深入的分析，不遗漏任何细节。")
	} else {
		b.WriteString("分析要细致但直接，避免冗长。")
	}
	return b.String()
}

// BuildGeneratePrompt asks for GenerateCount rewrites of content on topic,
// keeping its structure and voice.
func BuildGeneratePrompt(content, topic, keywords string, deep, thinking bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "下面是一篇小红书爆文。请沿用它的结构、句式和语气，围绕新主题「%s」写出%d篇角度不同的笔记。\n\n", topic, GenerateCount)
	if thinking {
		b.WriteString("输出格式：\n" + thinkingHeader + "\n简要分析原文结构以及新主题的切入角度。\n\n" + resultHeader + "\n")
	} else {
		b.WriteString("直接输出笔记，不要包含分析。格式：\n")
	}
	for i := 1; i <= GenerateCount; i++ {
		fmt.Fprintf(&b, noteMarkerFmt+"\n标题：[标题]\n[正文]\n\n", i)
	}
	b.WriteString("原文：\n\"\"\"\n")
	b.WriteString(content)
	b.WriteString("\n\"\"\"\n\n")
	if kw := strings.TrimSpace(keywords); kw != "" {
		fmt.Fprintf(&b, "请自然融入这些关键词：%s\n", kw)
	}
	if deep {
		b.WriteString("每篇都要针对新主题给出专业、具体的内容，篇与篇之间角度明显不同。\n")
	}
	b.WriteString("文风与原文保持一致，不要使用过多表情符号。")
	return b.String()
}
