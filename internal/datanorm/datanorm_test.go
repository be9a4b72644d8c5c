package datanorm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"128", 128},
		{"¥1,280.50", 1280.5},
		{"￥99", 99},
		{"１２８", 128},
		{"105~110", 105},
		{"105-110(按款式)", 105},
		{"-30", -30},
		{"无", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"iso", "2024-03-05", date(2024, 3, 5), true},
		{"with time", "2024/3/5 14:22:10", date(2024, 3, 5), true},
		{"dots", "2024.03.05", date(2024, 3, 5), true},
		{"two digit year", "24-03-05", date(2024, 3, 5), true},
		{"old two digit year", "98-03-05", date(1998, 3, 5), true},
		{"cjk", "2024年3月5日", date(2024, 3, 5), true},
		{"full width", "２０２４－０３－０５", date(2024, 3, 5), true},
		{"excel serial", "45356", date(2024, 3, 5), true},
		{"excel serial with time", "45356.75", date(2024, 3, 5), true},
		{"bare year", "2024", time.Time{}, false},
		{"implausible serial", "12345", time.Time{}, false},
		{"compact8", "20240305", date(2024, 3, 5), true},
		{"compact6", "240305", date(2024, 3, 5), true},
		{"month day past", "3-5", date(2024, 3, 5), true},
		{"month day future rolls back", "12/25", date(2023, 12, 25), true},
		{"cjk month day", "3月5日", date(2024, 3, 5), true},
		{"invalid day", "2024-02-30", time.Time{}, false},
		{"garbage", "尽快", time.Time{}, false},
		{"empty", "  ", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in, today)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "13812345678", NormalizePhone("13812345678"))
	assert.Equal(t, "13812345678", NormalizePhone("+86 138 1234 5678"))
	assert.Equal(t, "13812345678", NormalizePhone("１３８１２３４５６７８"))
	assert.Equal(t, "12345", NormalizePhone("tel: 12345"))
	assert.Equal(t, "", NormalizePhone("无"))
}

func TestMapColumns(t *testing.T) {
	m, err := MapColumns([]string{"\ufeff姓名", "手机号", "顾客付款日期", "付款日期", "收款额", "成本价", "打款金额", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index[FieldName])
	// first alias in priority order wins, not first column
	assert.Equal(t, 2, m.Index[FieldPayDate])
	assert.Equal(t, 6, m.Index[FieldCost])
	assert.False(t, m.Has(FieldNet))
}

func TestMapColumnsEnglish(t *testing.T) {
	m, err := MapColumns([]string{"phone", "pay_date", "gross", "Refund_Type"})
	require.NoError(t, err)
	assert.True(t, m.Has(FieldPhone))
	assert.True(t, m.Has(FieldRefundType))
}

func TestMapColumnsShapeErrors(t *testing.T) {
	_, err := MapColumns([]string{"姓名", "收款额"})
	assert.ErrorIs(t, err, ErrNoDateColumn)

	_, err = MapColumns([]string{"付款日期", "收款额"})
	assert.ErrorIs(t, err, ErrNoIdentityColumn)
}

func TestReadCSV(t *testing.T) {
	data := "\ufeff姓名,手机号,付款日期,状态,收款额,净收款,退款金额,退款类型,货品名\n" +
		"张三,138 1234 5678,2024-05-01,已发货,¥300,280,,,面霜\n" +
		",,,,,,,,\n" +
		"李四,13912345678,明天,取消,200,,,,精华\n" +
		"王五,,2024-05-03,,150,,50,退货退款,\n"

	res, err := ReadCSV(strings.NewReader(data), today)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, 1, res.BadDates)

	first := res.Rows[0]
	assert.Equal(t, "张三", first.Name)
	assert.Equal(t, "13812345678", first.Phone)
	assert.Equal(t, 300.0, first.Gross)
	assert.Equal(t, 280.0, first.Net)
	assert.Equal(t, "面霜", first.Item)
	assert.True(t, first.PayDate.Equal(date(2024, 5, 1)))

	assert.False(t, res.Rows[1].HasPayDate())
	assert.Equal(t, "取消", res.Rows[1].Status)

	assert.Equal(t, 50.0, res.Rows[2].RefundAmount)
	assert.Equal(t, "退货退款", res.Rows[2].RefundType)
}

func TestReadCSVMissingDateColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("姓名,收款额\n张三,100\n"), today)
	assert.ErrorIs(t, err, ErrNoDateColumn)
}

func TestReadXLSX(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"客户名称", "电话", "下单日期", "金额", "出售平台"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"张三", "13812345678", 45356, 520, "小红书"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{"李四", "13912345678", "2024/04/01", "¥88", "抖音"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	res, err := ReadXLSX(buf, "", today)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.True(t, res.Rows[0].PayDate.Equal(date(2024, 3, 5)))
	assert.Equal(t, 520.0, res.Rows[0].Gross)
	assert.Equal(t, "小红书", res.Rows[0].Platform)
	assert.True(t, res.Rows[1].PayDate.Equal(date(2024, 4, 1)))
	assert.Equal(t, 88.0, res.Rows[1].Gross)
}
