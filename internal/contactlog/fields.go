package contactlog

import (
	"strconv"
	"strings"
	"time"

	"github.com/ignite/customer-alerts/internal/datanorm"
)

type field int

const (
	fieldPhone field = iota
	fieldLastContact
	fieldOwner
	fieldReply
	fieldNote
	fieldNextContact
	fieldHappiness
)

// fieldAliases lists accepted column titles per field, most specific first.
var fieldAliases = map[field][]string{
	fieldPhone:       {"手机号", "手机", "手机号码", "联系电话", "电话", "联系方式", "phone"},
	fieldLastContact: {"最后联系日期", "最后联系日", "最近联系日期", "最近联系日", "员工联系日期", "联系日期", "last_contact"},
	fieldOwner:       {"联系人", "负责人", "跟进人", "owner"},
	fieldReply:       {"回复状态", "回复情况", "客户回复", "reply_status"},
	fieldNote:        {"备注", "联系备注", "note"},
	fieldNextContact: {"下次联系日期", "下次联系", "计划联系日期", "next_contact"},
	fieldHappiness:   {"满意度", "开心度", "happiness"},
}

// columnIndex resolves each field to the first matching header position.
func columnIndex(header []string) map[field]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		n := datanorm.NormalizeHeader(h)
		if _, dup := pos[n]; n != "" && !dup {
			pos[n] = i
		}
	}
	idx := make(map[field]int)
	for f, aliases := range fieldAliases {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				idx[f] = i
				break
			}
		}
	}
	return idx
}

// lookup returns the raw value of f, or "" when absent.
type lookup func(f field) string

// parseEntry builds an entry from raw values. ok is false when the phone
// or the last-contact date is missing.
func parseEntry(get lookup, today time.Time) (Entry, bool) {
	e := Entry{
		Phone:       datanorm.NormalizePhone(get(fieldPhone)),
		Owner:       strings.TrimSpace(get(fieldOwner)),
		ReplyStatus: strings.TrimSpace(get(fieldReply)),
		Note:        strings.TrimSpace(get(fieldNote)),
	}
	if e.Phone == "" {
		return Entry{}, false
	}
	last, ok := datanorm.ParseDate(get(fieldLastContact), today)
	if !ok {
		return Entry{}, false
	}
	e.LastContact = last
	if next, ok := datanorm.ParseDate(get(fieldNextContact), today); ok {
		e.NextContact = next
	}
	if h := strings.TrimSpace(get(fieldHappiness)); h != "" {
		if v, err := strconv.ParseFloat(h, 64); err == nil {
			e.Happiness, e.HasHappiness = v, true
		}
	}
	return e, true
}

// FromRecords builds a log from a header and data rows. Rows without a
// phone or a parseable contact date are skipped.
func FromRecords(header []string, rows [][]string, today time.Time) (Log, int) {
	idx := columnIndex(header)
	log := make(Log)
	skipped := 0
	for _, row := range rows {
		if datanorm.IsBlank(row) {
			continue
		}
		get := func(f field) string {
			i, ok := idx[f]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		e, ok := parseEntry(get, today)
		if !ok {
			skipped++
			continue
		}
		log.Merge(e)
	}
	return log, skipped
}
