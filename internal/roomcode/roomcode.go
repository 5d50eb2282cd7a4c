// Package roomcode 生成和校验形如 ABC-DEF-GHJ 的房间加入码。
package roomcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Alphabet 去掉了易混淆的 0/1/I/O。
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	groups    = 3
	groupSize = 3
	// Length 是加入码的总长度（含连字符）。
	Length = groups*groupSize + groups - 1
)

var pattern = regexp.MustCompile(`^[A-Z2-9]{3}-[A-Z2-9]{3}-[A-Z2-9]{3}$`)

// Generate 使用 crypto/rand 生成新的加入码。
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	max := big.NewInt(int64(len(Alphabet)))
	for g := 0; g < groups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < groupSize; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("roomcode: read random: %w", err)
			}
			b.WriteByte(Alphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// Normalize 去除首尾空白并转为大写，查询前必须调用。
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid 报告 code 是否符合格式。只检查形状，字母表外的 I/O 由 Strict 检查。
func Valid(code string) bool {
	return pattern.MatchString(code)
}

// Strict 报告 code 的每个字符是否都来自 Alphabet。
func Strict(code string) bool {
	if !Valid(code) {
		return false
	}
	for _, r := range strings.ReplaceAll(code, "-", "") {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
