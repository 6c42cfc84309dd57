package gateway

import (
	"time"
	_ "time/tzdata" // 容器镜像里不一定带时区数据

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"marketplace/internal/pkg/config"
)

// 网关使用的时间格式 yyyyMMddHHmmss
const TimeLayout = "20060102150405"

// ResponseCodeSuccess 是网关表示支付成功的响应码
const ResponseCodeSuccess = "000"

const (
	FieldVersion            = "pp_Version"
	FieldTxnType            = "pp_TxnType"
	FieldLanguage           = "pp_Language"
	FieldMerchantID         = "pp_MerchantID"
	FieldSubMerchantID      = "pp_SubMerchantID"
	FieldPassword           = "pp_Password"
	FieldBankID             = "pp_BankID"
	FieldProductID          = "pp_ProductID"
	FieldTxnRefNo           = "pp_TxnRefNo"
	FieldAmount             = "pp_Amount"
	FieldTxnCurrency        = "pp_TxnCurrency"
	FieldTxnDateTime        = "pp_TxnDateTime"
	FieldBillReference      = "pp_BillReference"
	FieldDescription        = "pp_Description"
	FieldTxnExpiryDateTime  = "pp_TxnExpiryDateTime"
	FieldReturnURL          = "pp_ReturnURL"
	FieldResponseCode       = "pp_ResponseCode"
	FieldResponseMessage    = "pp_ResponseMessage"
	FieldOrderCorrelationID = "ppmpf_1"
)

// 支付请求的有效期
const txnExpiry = time.Hour

// Merchant 是签名请求所需的商户参数
type Merchant struct {
	cfg config.GatewayConfig
	loc *time.Location
}

func NewMerchant(cfg config.GatewayConfig) (*Merchant, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "load gateway time zone %q", cfg.TimeZone)
	}
	return &Merchant{cfg: cfg, loc: loc}, nil
}

func (m *Merchant) Endpoint() string {
	return m.cfg.Endpoint
}

func (m *Merchant) Salt() string {
	return m.cfg.IntegritySalt
}

// PaymentRequest 描述一次待签名的支付
type PaymentRequest struct {
	OrderID    string
	TrackingID string
	GrandTotal decimal.Decimal
}

// MinorUnits 把金额换算为最小货币单位（×100 后四舍五入）
func MinorUnits(amount decimal.Decimal) string {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).StringFixed(0)
}

// Sign 生成完整的网关表单字段，包括 pp_SecureHash。
func (m *Merchant) Sign(req PaymentRequest, now time.Time) Fields {
	local := now.In(m.loc)
	f := Fields{
		FieldVersion:            m.cfg.Version,
		FieldTxnType:            m.cfg.TxnType,
		FieldLanguage:           m.cfg.Language,
		FieldMerchantID:         m.cfg.MerchantID,
		FieldSubMerchantID:      "",
		FieldPassword:           m.cfg.Password,
		FieldBankID:             m.cfg.BankID,
		FieldProductID:          m.cfg.ProductID,
		FieldTxnRefNo:           "T" + local.Format(TimeLayout),
		FieldAmount:             MinorUnits(req.GrandTotal),
		FieldTxnCurrency:        m.cfg.Currency,
		FieldTxnDateTime:        local.Format(TimeLayout),
		FieldBillReference:      req.TrackingID,
		FieldDescription:        "Order " + req.TrackingID,
		FieldTxnExpiryDateTime:  local.Add(txnExpiry).Format(TimeLayout),
		FieldReturnURL:          m.cfg.ReturnURL,
		FieldOrderCorrelationID: req.OrderID,
	}
	f[FieldSecureHash] = SecureHash(m.cfg.IntegritySalt, f)
	return f
}
