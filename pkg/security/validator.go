package security

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// dataURIPattern 内联图片，如 data:image/png;base64,....
var dataURIPattern = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=\s]+$`)

// RegisterRules 在 gin 的校验引擎上注册业务规则：
//
//	usn      以校园前缀开头（忽略大小写与首尾空白）
//	imageref http(s) 链接或图片 data URI
func RegisterRules(usnPrefix string) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("security: gin validator engine is not go-playground/validator")
	}
	return registerOn(v, usnPrefix)
}

func registerOn(v *validator.Validate, usnPrefix string) error {
	prefix := strings.ToUpper(strings.TrimSpace(usnPrefix))
	if err := v.RegisterValidation("usn", func(fl validator.FieldLevel) bool {
		return ValidUSN(fl.Field().String(), prefix)
	}); err != nil {
		return fmt.Errorf("register usn rule: %w", err)
	}
	if err := v.RegisterValidation("imageref", func(fl validator.FieldLevel) bool {
		return ValidImageRef(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register imageref rule: %w", err)
	}
	return nil
}

// ValidUSN 判断 USN 是否带有校园前缀
func ValidUSN(usn, prefix string) bool {
	usn = strings.ToUpper(strings.TrimSpace(usn))
	return len(usn) > len(prefix) && strings.HasPrefix(usn, prefix)
}

// ValidImageRef 图片字段允许 http(s) URL 或 data URI
func ValidImageRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "data:") {
		return dataURIPattern.MatchString(ref)
	}
	u, err := url.ParseRequestURI(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Describe 把校验错误转换为面向用户的字段提示
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "usn":
		return field + " must start with the campus prefix"
	case "imageref":
		return field + " must be an image URL or data URI"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
