package models

import (
	"errors"
	"strings"
	"time"
)

// 日期输入格式：优先 DD-MM-YYYY，兼容 ISO
const (
	DateLayout    = "02-01-2006"
	ISODateLayout = "2006-01-02"
)

const secondsPerDay = 24 * 60 * 60

// ErrInvalidDate 日期无法解析
var ErrInvalidDate = errors.New("invalid date")

// DateOf 取 t 所在时区的日历日，统一表示为 UTC 零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回 to - from 相差的天数（按日历日）
func DaysBetween(from, to time.Time) int {
	// time.Duration 约 292 年溢出，按 Unix 秒计算
	return int((DateOf(to).Unix() - DateOf(from).Unix()) / secondsPerDay)
}

// ParseDate 解析用户输入的日期，支持 today
func ParseDate(s string, today time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "today") {
		return DateOf(today), nil
	}
	for _, layout := range []string{DateLayout, ISODateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// EndOfMonth 返回 day 所在月份的最后一天
func EndOfMonth(day time.Time) time.Time {
	d := DateOf(day)
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
