package datanorm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/width"
)

const phoneRegion = "CN"

// NormalizeRow converts one raw ledger row into an OrderRow. It never
// fails: malformed cells become zero values. badDate is true when the pay
// date cell had content that did not parse.
func NormalizeRow(row []string, mapping *ColumnMapping, today time.Time) (rec OrderRow, badDate bool) {
	text := func(f CanonicalField) string { return normalizeText(mapping.Cell(row, f)) }
	amount := func(f CanonicalField) float64 { return ParseAmount(mapping.Cell(row, f)) }

	rec = OrderRow{
		Name:         text(FieldName),
		Phone:        NormalizePhone(mapping.Cell(row, FieldPhone)),
		Address:      text(FieldAddress),
		Owner:        text(FieldOwner),
		Platform:     text(FieldPlatform),
		Item:         text(FieldItem),
		Manufacturer: text(FieldManufacturer),
		Status:       text(FieldStatus),
		Gross:        amount(FieldGross),
		Net:          amount(FieldNet),
		Profit:       amount(FieldProfit),
		Cost:         amount(FieldCost),
		RefundAmount: amount(FieldRefundAmount),
		RefundStatus: text(FieldRefundStatus),
		RefundType:   text(FieldRefundType),
		RefundReason: text(FieldRefundReason),
		OrderNo:      text(FieldOrderNo),
		ReturnNo:     text(FieldReturnNo),
		Notes:        text(FieldNotes),
		DataSource:   text(FieldDataSource),
	}

	rawDate := mapping.Cell(row, FieldPayDate)
	if d, ok := ParseDate(rawDate, today); ok {
		rec.PayDate = d
	} else if strings.TrimSpace(rawDate) != "" {
		badDate = true
	}
	if d, ok := ParseDate(mapping.Cell(row, FieldRefundDate), today); ok {
		rec.RefundDate = d
	}
	return rec, badDate
}

func foldWidth(s string) string {
	return width.Fold.String(s)
}

func normalizeText(raw string) string {
	return strings.TrimSpace(foldWidth(raw))
}

var numberToken = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)

// ParseAmount extracts the first numeric token after stripping currency
// signs and thousands separators, so "¥1,280" is 1280 and "105~110" is
// 105. Anything without a number is 0.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(foldWidth(raw))
	if s == "" {
		return 0
	}
	s = strings.NewReplacer("¥", "", "￥", "", ",", "").Replace(s)
	tok := numberToken.FindString(s)
	if tok == "" {
		return 0
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0
	}
	return v
}

// NormalizePhone reduces a phone cell to the identity form used for
// customer keys. Valid mainland numbers become their national significant
// number, so "+86 138 1234 5678" and "13812345678" collide; anything else
// keeps only its digits.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(foldWidth(raw))
	digits := digitsOnly(s)
	if digits == "" {
		return ""
	}
	if num, err := phonenumbers.Parse(s, phoneRegion); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.GetNationalSignificantNumber(num)
	}
	return digits
}

// Digits keeps the digits of s, full-width ones included.
func Digits(s string) string { return digitsOnly(foldWidth(s)) }

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	excelSerial  = regexp.MustCompile(`^\d{5}(?:\.\d+)?$`)
	ymdPattern   = regexp.MustCompile(`(\d{4}|\d{2})[./-](\d{1,2})[./-](\d{1,2})`)
	cjkPattern   = regexp.MustCompile(`(\d{4}|\d{2})年(\d{1,2})月(\d{1,2})日`)
	mdPattern    = regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})(?:[^\d]|$)`)
	cjkMDPattern = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
	compact8     = regexp.MustCompile(`(?:^|[^\d])(\d{8})(?:[^\d]|$)`)
	compact6     = regexp.MustCompile(`(?:^|[^\d])(\d{6})(?:[^\d]|$)`)
)

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serials outside this range (1954 to 2119) are not ledger dates.
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseDate parses the date shapes found in ledgers, in this order:
// five-digit Excel serial numbers, y-m-d with . / - separators, 年月日, month-day
// without a year (the latest such date not after today), compact
// yyyymmdd and yymmdd. Two-digit years up to 68 are 20xx. The result is
// midnight UTC.
func ParseDate(raw string, today time.Time) (time.Time, bool) {
	s := strings.TrimSpace(foldWidth(raw))
	if s == "" {
		return time.Time{}, false
	}

	if excelSerial.MatchString(s) {
		days, err := strconv.ParseFloat(s, 64)
		if err == nil && days >= minExcelSerial && days < maxExcelSerial {
			return excelEpoch.AddDate(0, 0, int(days)), true
		}
	}
	if m := ymdPattern.FindStringSubmatch(s); m != nil {
		if d, ok := civil(expandYear(m[1]), m[2], m[3]); ok {
			return d, true
		}
	}
	if m := cjkPattern.FindStringSubmatch(s); m != nil {
		if d, ok := civil(expandYear(m[1]), m[2], m[3]); ok {
			return d, true
		}
	}
	if m := compact8.FindStringSubmatch(s); m != nil {
		if d, ok := civil(atoi(m[1][:4]), m[1][4:6], m[1][6:]); ok {
			return d, true
		}
	}
	if m := compact6.FindStringSubmatch(s); m != nil {
		if d, ok := civil(expandYear(m[1][:2]), m[1][2:4], m[1][4:]); ok {
			return d, true
		}
	}
	for _, p := range []*regexp.Regexp{mdPattern, cjkMDPattern} {
		if m := p.FindStringSubmatch(s); m != nil {
			if d, ok := assumeYear(m[1], m[2], today); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func assumeYear(month, day string, today time.Time) (time.Time, bool) {
	d, ok := civil(today.Year(), month, day)
	if ok && d.After(Day(today)) {
		d, ok = civil(today.Year()-1, month, day)
	}
	return d, ok
}

func expandYear(y string) int {
	yy := atoi(y)
	if len(y) == 2 {
		if yy <= 68 {
			return 2000 + yy
		}
		return 1900 + yy
	}
	return yy
}

func civil(year int, month, day string) (time.Time, bool) {
	mo, d := atoi(month), atoi(day)
	if year < 1900 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject instead.
	if t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
