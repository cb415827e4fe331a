package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const orderIDPrefix = "ORD"

// FormatOrderID собирает номер заказа вида ORD000042
func FormatOrderID(seq int64) string {
	return fmt.Sprintf("%s%06d", orderIDPrefix, seq)
}

// ParseOrderSeq возвращает числовой суффикс номера заказа
func ParseOrderSeq(id string) (int64, bool) {
	if !strings.HasPrefix(id, orderIDPrefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, orderIDPrefix), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
