// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-chat-go/internal/config"
)

// ResponderService 根据固定的关键词规则生成预设回答，模拟外部 AI 搜索服务。
// 没有状态，也不访问网络。
type ResponderService interface {
	GenerateResponse(ctx context.Context, query string) string
}

type responderService struct {
	thinkDelay time.Duration
	rules      []responderRule
}

// responderRule 是一条关键词匹配规则。matchAll 为 true 时要求所有关键词
// 同时出现，否则任一关键词命中即可。规则按声明顺序逐条尝试。
type responderRule struct {
	keywords []string
	matchAll bool
	reply    func(query string) string
}

// NewResponderService 创建一个新的 ResponderService 实例。
func NewResponderService(cfg config.MockConfig) ResponderService {
	return &responderService{
		thinkDelay: time.Duration(cfg.ResponderDelayMs) * time.Millisecond,
		rules:      defaultRules(),
	}
}

// GenerateResponse 对用户提问做大小写不敏感的子串匹配并返回预设回答。
// 没有规则命中时返回兜底回答。
func (s *responderService) GenerateResponse(ctx context.Context, query string) string {
	// 模拟思考耗时
	simulateLatency(s.thinkDelay)

	lowered := strings.ToLower(query)
	for _, rule := range s.rules {
		if rule.matches(lowered) {
			return rule.reply(query)
		}
	}

	return fmt.Sprintf(`I understand you're asking about "%s". While I don't have specific real-time information about this topic, I'd be happy to help with general information or guide you to reliable sources. Could you provide more details about what specific aspect you'd like to know about?`, query)
}

func (r responderRule) matches(loweredQuery string) bool {
	for _, kw := range r.keywords {
		contains := strings.Contains(loweredQuery, kw)
		if r.matchAll && !contains {
			return false
		}
		if !r.matchAll && contains {
			return true
		}
	}
	return r.matchAll
}

func staticReply(text string) func(string) string {
	return func(string) string { return text }
}

// defaultRules 返回内置的回答规则表，内容沿用既有产品文案。
func defaultRules() []responderRule {
	return []responderRule{
		{
			keywords: []string{"president", "kenya"}, matchAll: true,
			reply: staticReply(`The current President of Kenya is William Ruto, who took office on September 13, 2022. He won the 2022 presidential election and is Kenya's fifth president since independence. Prior to becoming president, Ruto served as Deputy President under Uhuru Kenyatta from 2013 to 2022.`),
		},
		{
			keywords: []string{"capital", "kenya"}, matchAll: true,
			reply: staticReply(`The capital city of Kenya is Nairobi. It's also the largest city in Kenya and serves as the country's economic, political, and cultural center. Nairobi is located in the south-central part of Kenya and has a population of over 4 million people.`),
		},
		{
			keywords: []string{"weather", "temperature"},
			reply:    staticReply(`I don't have access to real-time weather data, but I can help you with general weather information. For current weather conditions, I recommend checking a reliable weather service like Weather.com, AccuWeather, or your local weather app for the most accurate and up-to-date information.`),
		},
		{
			keywords: []string{"hello", "hi", "hey"},
			reply:    staticReply(`Hello! I'm your AI assistant. I'm here to help answer your questions and provide information on a wide range of topics. What would you like to know today?`),
		},
		{
			keywords: []string{"who are you", "what are you"},
			reply:    staticReply(`I'm an AI Search Chatbot designed to help answer your questions and provide information. I can assist with general knowledge, facts, explanations, and various topics. How can I help you today?`),
		},
		{
			keywords: []string{"time", "date"},
			reply: func(string) string {
				return fmt.Sprintf(`The current date and time is: %s. Please note that this is based on your local system time.`, time.Now().Format("2006-01-02 15:04:05"))
			},
		},
		{
			keywords: []string{"thank", "thanks"},
			reply:    staticReply(`You're welcome! I'm glad I could help. If you have any other questions, feel free to ask!`),
		},
		{
			keywords: []string{"python", "programming"}, matchAll: true,
			reply: staticReply(`Python is a high-level, interpreted programming language known for its simplicity and readability. It was created by Guido van Rossum and first released in 1991. Python is widely used for web development, data science, artificial intelligence, automation, and many other applications. Its clean syntax makes it an excellent language for beginners.`),
		},
		{
			keywords: []string{"ai", "artificial intelligence"},
			reply:    staticReply(`Artificial Intelligence (AI) refers to the simulation of human intelligence in machines that are programmed to think and learn like humans. AI systems can perform tasks such as visual perception, speech recognition, decision-making, and language translation. Common AI applications include virtual assistants, recommendation systems, autonomous vehicles, and machine learning algorithms.`),
		},
	}
}
