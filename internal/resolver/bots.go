package resolver

import "strings"

// botSignatures 已知的社交预览和爬虫 User-Agent 片段，小写
var botSignatures = []string{
	"facebookexternalhit",
	"facebot",
	"twitterbot",
	"linkedinbot",
	"slackbot",
	"slack-imgproxy",
	"discordbot",
	"telegrambot",
	"whatsapp",
	"pinterest",
	"redditbot",
	"applebot",
	"skypeuripreview",
	"vkshare",
	"embedly",
	"googlebot",
	"bingbot",
	"yandexbot",
	"duckduckbot",
	"mastodon",
}

// IsBot 按子串匹配识别爬虫；空 User-Agent 视为普通用户
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
