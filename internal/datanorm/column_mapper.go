package datanorm

import "strings"

// CanonicalField is a normalized field name used across all ledger sources.
type CanonicalField string

const (
	FieldName         CanonicalField = "name"
	FieldPhone        CanonicalField = "phone"
	FieldPayDate      CanonicalField = "pay_date"
	FieldStatus       CanonicalField = "status"
	FieldGross        CanonicalField = "gross"
	FieldNet          CanonicalField = "net"
	FieldProfit       CanonicalField = "profit"
	FieldCost         CanonicalField = "cost"
	FieldRefundAmount CanonicalField = "refund_amount"
	FieldRefundStatus CanonicalField = "refund_status"
	FieldRefundType   CanonicalField = "refund_type"
	FieldRefundReason CanonicalField = "refund_reason"
	FieldRefundDate   CanonicalField = "refund_date"
	FieldOwner        CanonicalField = "owner"
	FieldPlatform     CanonicalField = "platform"
	FieldAddress      CanonicalField = "address"
	FieldNotes        CanonicalField = "notes"
	FieldItem         CanonicalField = "item"
	FieldManufacturer CanonicalField = "manufacturer"
	FieldOrderNo      CanonicalField = "order_no"
	FieldReturnNo     CanonicalField = "return_no"
	FieldDataSource   CanonicalField = "data_source"
)

// columnAliases lists the accepted headers per field in priority order:
// when a ledger carries several of them the first one present wins.
// The canonical name itself is always accepted after the aliases.
var columnAliases = []struct {
	field   CanonicalField
	aliases []string
}{
	{FieldName, []string{"姓名", "客户名称", "顾客姓名"}},
	{FieldPhone, []string{"手机号", "电话", "联系方式"}},
	{FieldPayDate, []string{"顾客付款日期", "客户付款日期", "付款日期", "下单日期", "下单时间"}},
	{FieldStatus, []string{"状态"}},
	{FieldGross, []string{"收款额", "金额"}},
	{FieldNet, []string{"净收款"}},
	{FieldProfit, []string{"毛利", "利润估算"}},
	{FieldCost, []string{"打款金额", "打款", "打款价", "成本价", "成本"}},
	{FieldRefundAmount, []string{"退款金额"}},
	{FieldRefundStatus, []string{"退货状态"}},
	{FieldRefundType, []string{"退款类型"}},
	{FieldRefundReason, []string{"退款原因"}},
	{FieldRefundDate, []string{"退款日", "退款日期"}},
	{FieldOwner, []string{"负责人", "跟进人"}},
	{FieldPlatform, []string{"出售平台", "平台"}},
	{FieldAddress, []string{"地址", "收货地址"}},
	{FieldNotes, []string{"备注", "货品备注"}},
	{FieldItem, []string{"货品名", "商品名称"}},
	{FieldManufacturer, []string{"厂家", "有货厂家"}},
	{FieldOrderNo, []string{"单号", "订单号", "出库单号", "出单号"}},
	{FieldReturnNo, []string{"退货单号", "退货物流", "退货快递", "退货快递单号", "退货物流单号", "退回单号", "退货运单号"}},
	{FieldDataSource, []string{"数据来源"}},
}

// ColumnMapping holds the resolved mapping from column indices to canonical fields.
type ColumnMapping struct {
	Index    map[CanonicalField]int // canonical field -> column index
	RawNames []string               // original header names
}

// Has reports whether the ledger carries a column for f.
func (m *ColumnMapping) Has(f CanonicalField) bool {
	_, ok := m.Index[f]
	return ok
}

// Cell returns the raw value of field f in row, or "" when the column is
// absent or the row is short.
func (m *ColumnMapping) Cell(row []string, f CanonicalField) string {
	i, ok := m.Index[f]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// MapColumns takes a raw header row and returns a resolved mapping.
// It fails when the header has no pay date column or no identity column.
func MapColumns(header []string) (*ColumnMapping, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		normalized := NormalizeHeader(h)
		if normalized == "" {
			continue
		}
		if _, dup := positions[normalized]; !dup {
			positions[normalized] = i
		}
	}

	m := &ColumnMapping{
		Index:    make(map[CanonicalField]int, len(columnAliases)),
		RawNames: header,
	}
	for _, entry := range columnAliases {
		for _, alias := range append(entry.aliases, string(entry.field)) {
			if i, ok := positions[alias]; ok {
				m.Index[entry.field] = i
				break
			}
		}
	}

	if !m.Has(FieldPayDate) {
		return nil, ErrNoDateColumn
	}
	if !m.Has(FieldName) && !m.Has(FieldPhone) && !m.Has(FieldAddress) {
		return nil, ErrNoIdentityColumn
	}
	return m, nil
}

// NormalizeHeader folds a column title for alias matching.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(foldWidth(h))
	h = strings.Trim(h, "\"'")
	return strings.ToLower(h)
}
