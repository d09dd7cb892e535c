package site

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var turkishMonths = [...]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

// DisplayDate formats t the way posts and announcements show their date,
// e.g. "02 EKİM 2026". Upper-casing is Turkish-aware (i -> İ).
func DisplayDate(t time.Time) string {
	// Casers keep state; one per call keeps DisplayDate goroutine-safe.
	month := cases.Upper(language.Turkish).String(turkishMonths[t.Month()-1])
	return fmt.Sprintf("%02d %s %d", t.Day(), month, t.Year())
}

// DisplayDateTime formats t the way messages show their receipt time,
// e.g. "18.10.2026 14:05:09".
func DisplayDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04:05")
}

// WordsPerMinute is the reading speed used by ReadingTime.
const WordsPerMinute = 200

// ReadingTime estimates minutes to read content, never less than one.
func ReadingTime(content string) string {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes)
}
