package shortcode

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidSlug 长度或字符不合法
	ErrInvalidSlug = errors.New("slug must be 3-50 characters of letters, digits, '-' or '_'")
	// ErrReservedSlug 与系统路由冲突的保留字
	ErrReservedSlug = errors.New("slug is reserved")
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

var reservedSlugs = map[string]struct{}{
	"dashboard": {}, "admin": {}, "settings": {}, "api": {}, "auth": {},
	"sign-in": {}, "sign-up": {}, "login": {}, "register": {}, "logout": {},
	"profile": {}, "404": {}, "test": {},
	// 本服务自身的路由
	"health": {}, "metrics": {}, "swagger": {}, "metadata": {}, "password": {},
	"expired": {}, "qr": {}, "internal": {}, "static": {},
}

// IsReserved 不区分大小写地判断是否为保留字
func IsReserved(slug string) bool {
	_, ok := reservedSlugs[strings.ToLower(slug)]
	return ok
}

// ValidateSlug 校验自定义短码
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	if IsReserved(slug) {
		return ErrReservedSlug
	}
	return nil
}
