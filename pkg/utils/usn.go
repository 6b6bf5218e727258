package utils

import "strings"

// NormalizeUSN 去除空白并转大写，作为 USN 去重键
func NormalizeUSN(usn string) string {
	return strings.ToUpper(strings.TrimSpace(usn))
}

// NormalizeName 折叠多余空白
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// SameName 忽略大小写与多余空白比较姓名
func SameName(a, b string) bool {
	return strings.EqualFold(NormalizeName(a), NormalizeName(b))
}

// PairKey 两个用户 ID 的无序组合键
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
