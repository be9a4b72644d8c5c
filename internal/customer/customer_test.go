package customer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-alerts/internal/datanorm"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return today.AddDate(0, 0, -n) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		row  datanorm.OrderRow
		want Outcome
	}{
		{"plain order", datanorm.OrderRow{Gross: 100}, ValidOrder},
		{"zero gross is cancellation", datanorm.OrderRow{Gross: 0}, Cancelled},
		{"negative gross", datanorm.OrderRow{Gross: -5}, Cancelled},
		{"status cancelled", datanorm.OrderRow{Gross: 100, Status: "已取消"}, Cancelled},
		{"refund type cancelled", datanorm.OrderRow{Gross: 100, RefundType: "取消订单"}, Cancelled},
		{"refund amount", datanorm.OrderRow{Gross: 100, RefundAmount: 30}, ValidOrder | Refunded},
		{"refund status", datanorm.OrderRow{Gross: 100, RefundStatus: "已退货"}, ValidOrder | Refunded},
		{"exchange", datanorm.OrderRow{Gross: 100, RefundType: "换货"}, ValidOrder | Exchange},
		{"cancelled refund", datanorm.OrderRow{Gross: 100, Status: "取消", RefundType: "退款"}, Cancelled | Refunded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.row), Classify(tt.row).String())
		})
	}
}

func TestCounterMostFrequent(t *testing.T) {
	var c Counter
	assert.Equal(t, "", c.MostFrequent())
	c.Add("抖音")
	c.Add("小红书")
	c.Add("")
	c.Add("小红书")
	c.Add("抖音")
	// tie goes to the first seen label
	assert.Equal(t, "抖音", c.MostFrequent())
	c.Add("小红书")
	assert.Equal(t, "小红书", c.MostFrequent())
	assert.Equal(t, []string{"抖音", "小红书"}, c.Labels())
	assert.Equal(t, 3, c.Count("小红书"))
	assert.Equal(t, 2, c.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "13812345678", Key("张三", "13812345678", "北京"))
	assert.Equal(t, "张三|北京", Key("张三", "", "北京"))
	assert.Equal(t, "张三", Key("张三", "", ""))
	assert.Equal(t, "北京", Key("", "", "北京"))
	assert.Equal(t, UnknownKey, Key("", "", ""))
}

func TestIngest(t *testing.T) {
	rows := []datanorm.OrderRow{
		{Name: "张三", Phone: "13812345678", Gross: 300, Net: 280, Cost: 100, Item: "面霜", Platform: "小红书", Owner: "小王", PayDate: daysAgo(100)},
		{Name: "李四", Gross: 200, PayDate: daysAgo(5)},
		{Phone: "13812345678", Gross: 200, Profit: 90, Item: "面霜", Platform: "抖音", PayDate: daysAgo(40)},
		{Phone: "13812345678", Gross: 50, RefundAmount: 50, RefundType: "退货退款", PayDate: daysAgo(30)},
		{Phone: "13812345678", Gross: 0, Status: "待付款", PayDate: daysAgo(1)},
		{Phone: "13812345678", Gross: 120, Item: "精华"},
	}

	in := Ingest(rows)
	require.Equal(t, 2, in.Len())
	customers := in.Customers()
	assert.Equal(t, "13812345678", customers[0].Key)
	assert.Equal(t, "李四", customers[1].Key)

	s, ok := in.Lookup("13812345678")
	require.True(t, ok)
	assert.Equal(t, "张三", s.Name)
	assert.Equal(t, 4, s.Orders)
	assert.Equal(t, 1, s.Cancellations)
	assert.Equal(t, 1, s.Refunds)
	assert.Equal(t, 50.0, s.RefundAmount)
	// net falls back to gross when missing
	assert.InDelta(t, 280+200+50+120, s.Net, 1e-9)
	assert.InDelta(t, 180+90, s.Profit, 1e-9)
	assert.Len(t, s.Details, 6-1)
	// the undated valid order counts but has no history entry
	assert.Len(t, s.History, 3)
	assert.True(t, s.FirstOrder.Equal(daysAgo(100)))
	assert.True(t, s.LastOrder.Equal(daysAgo(30)))
	assert.Equal(t, "面霜", s.PreferredItem())
	assert.Equal(t, "小红书", s.MainPlatform())
	assert.Equal(t, "小王", s.MainOwner())

	rate, ok := s.ReturnRate()
	require.True(t, ok)
	assert.InDelta(t, 0.2, rate, 1e-9)

	days, ok := s.DaysSinceLast(today)
	require.True(t, ok)
	assert.Equal(t, 30, days)
	assert.Equal(t, 70, s.SpanDays())
}

func TestZeroGrossNeverCountsAsOrder(t *testing.T) {
	in := Ingest([]datanorm.OrderRow{{Name: "王五", Gross: 0, Net: 80, PayDate: daysAgo(3)}})
	s, _ := in.Lookup("王五")
	assert.Equal(t, 0, s.Orders)
	assert.Equal(t, 1, s.Cancellations)
	assert.Zero(t, s.Net)
	assert.True(t, s.LastOrder.IsZero())
	_, ok := s.ReturnRate()
	assert.False(t, ok)
}

func TestExchangeCounts(t *testing.T) {
	in := Ingest([]datanorm.OrderRow{
		{Name: "赵六", Gross: 100, PayDate: daysAgo(60)},
		{Name: "赵六", Gross: 100, RefundType: "换货", PayDate: daysAgo(30)},
	})
	s, _ := in.Lookup("赵六")
	assert.Equal(t, 2, s.Orders)
	assert.Equal(t, 1, s.ExchangeOrders)
	assert.Equal(t, 1, s.EffectiveOrders())
	assert.True(t, s.HasExchange())
}

func TestRefundDates(t *testing.T) {
	in := Ingest([]datanorm.OrderRow{
		{Name: "a", Gross: 10, RefundAmount: 10, PayDate: daysAgo(50), RefundDate: daysAgo(3)},
		{Name: "a", Gross: 10, RefundStatus: "退货中", PayDate: daysAgo(10)},
		{Name: "a", Gross: 10, RefundStatus: "退货中"},
	})
	s, _ := in.Lookup("a")
	dates := s.RefundDates()
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Equal(daysAgo(3)))
	assert.True(t, dates[1].Equal(daysAgo(10)))
}

func TestTimeWindows(t *testing.T) {
	history := []OrderEvent{
		{Date: daysAgo(0), Net: 1},
		{Date: daysAgo(29), Net: 2},
		{Date: daysAgo(30), Net: 4},
		{Date: daysAgo(89), Net: 8},
		{Date: daysAgo(90), Net: 16},
		{Date: daysAgo(179), Net: 32},
		{Date: daysAgo(180), Net: 64},
		{Date: daysAgo(364), Net: 128},
		{Date: daysAgo(365), Net: 256},
		{Date: today.AddDate(0, 0, 2), Net: 512},
	}
	w := TimeWindows(history, today)
	assert.Equal(t, 3.0, w.Last30)
	assert.Equal(t, 15.0, w.Last90)
	assert.Equal(t, 48.0, w.Prev90)
	assert.Equal(t, 63.0, w.Last180)
	assert.Equal(t, 255.0, w.Last365)
}

func TestOrderDatesAndFirstSpend(t *testing.T) {
	in := Ingest([]datanorm.OrderRow{
		{Name: "b", Gross: 300, PayDate: daysAgo(10)},
		{Name: "b", Gross: 400, PayDate: daysAgo(40)},
		{Name: "b", Gross: 200, PayDate: daysAgo(40)},
	})
	s, _ := in.Lookup("b")
	dates := s.OrderDates()
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Equal(daysAgo(40)))
	assert.Equal(t, 600.0, s.FirstOrderSpend())
	assert.Equal(t, 900.0, s.SpendWithinFirst(31))
	assert.Equal(t, 600.0, s.SpendWithinFirst(30))
}

func TestFirstOrderSpendIgnoresTimeOfDay(t *testing.T) {
	first := daysAgo(40)
	in := Ingest([]datanorm.OrderRow{
		{Name: "c", Gross: 150, PayDate: first.Add(9 * time.Hour)},
		{Name: "c", Gross: 250, PayDate: first.Add(20 * time.Hour)},
		{Name: "c", Gross: 500, PayDate: first.Add(24*time.Hour + time.Minute)},
	})
	s, _ := in.Lookup("c")
	assert.Equal(t, 400.0, s.FirstOrderSpend())
	assert.Len(t, s.OrderDates(), 2)
}
