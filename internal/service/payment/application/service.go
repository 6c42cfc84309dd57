package application

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	orderapp "marketplace/internal/service/order/application"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/payment/gateway"
)

// PrepareResponse 是前端提交给网关所需的全部信息
type PrepareResponse struct {
	PaymentURL    string         `json:"paymentUrl"`
	PaymentFields gateway.Fields `json:"paymentFields"`
}

// CallbackResult 决定回调之后把浏览器重定向到哪里
type CallbackResult struct {
	TrackingID  string
	Success     bool
	Changed     bool
	RedirectURL string
}

// PaymentService 负责准备签名的支付请求，以及处理网关的回调。
type PaymentService struct {
	orderRepo    domain.OrderRepository
	merchant     *gateway.Merchant
	events       *orderapp.EventEmitter
	tracer       trace.Tracer
	metrics      *metrics.ServerMetrics
	frontendBase string

	now func() time.Time
}

func NewPaymentService(orderRepo domain.OrderRepository, merchant *gateway.Merchant, events *orderapp.EventEmitter, tracer trace.Tracer, m *metrics.ServerMetrics, frontendBase string) *PaymentService {
	return &PaymentService{
		orderRepo:    orderRepo,
		merchant:     merchant,
		events:       events,
		tracer:       tracer,
		metrics:      m,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		now:          time.Now,
	}
}

// Prepare 为客户自己的、待支付的 Gateway 订单生成签名表单。
func (s *PaymentService) Prepare(ctx context.Context, customer *auth.Principal, orderID string) (*PrepareResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.PreparePayment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("customer.id", customer.AccountID))

	fail := func(err error) (*PrepareResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Message(err))
		return nil, err
	}

	if strings.TrimSpace(orderID) == "" {
		return fail(apperr.Validation("orderId is required"))
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fail(err)
	}
	if !order.OwnedBy(customer.AccountID) {
		return fail(apperr.Forbidden("order belongs to another customer"))
	}
	if order.PaymentMethod != domain.MethodGateway {
		return fail(apperr.InvalidState("order is not payable through the gateway"))
	}
	if order.PaymentStatus != domain.PaymentPending {
		return fail(apperr.InvalidState("order is already " + string(order.PaymentStatus)))
	}

	fields := s.merchant.Sign(gateway.PaymentRequest{
		OrderID:    order.ID,
		TrackingID: order.TrackingID,
		GrandTotal: order.GrandTotal,
	}, s.now())

	logger.Ctx(ctx).Info().
		Str("op", "PreparePayment").
		Str("actor", customer.AccountID).
		Str("order_id", order.ID).
		Str("tracking_id", order.TrackingID).
		Str("amount", fields[gateway.FieldAmount]).
		Msg("payment request prepared")

	return &PrepareResponse{PaymentURL: s.merchant.Endpoint(), PaymentFields: fields}, nil
}

// HandleCallback 校验网关回调并更新订单级支付状态。
// 完整性校验失败返回 IntegrityError 且不修改任何数据；找不到订单时仅确认收到。
// 重复投递同一结果是无害的。
func (s *PaymentService) HandleCallback(ctx context.Context, fields gateway.Fields) (*CallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.HandlePaymentCallback", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	trackingID := fields[gateway.FieldBillReference]
	responseCode := fields[gateway.FieldResponseCode]
	span.SetAttributes(
		attribute.String("order.tracking_id", trackingID),
		attribute.String("gateway.response_code", responseCode),
	)

	// 1. 完整性校验
	if !gateway.Verify(s.merchant.Salt(), fields) {
		err := errors.Wrap(apperr.ErrIntegrity, "secure hash mismatch")
		span.RecordError(err)
		span.SetStatus(codes.Error, "integrity check failed")
		s.metrics.PaymentCallbacks.WithLabelValues("integrity_error").Inc()
		logger.Ctx(ctx).Warn().
			Str("op", "PaymentCallback").
			Str("tracking_id", trackingID).
			Msg("gateway callback rejected: secure hash mismatch")
		return nil, err
	}

	success := responseCode == gateway.ResponseCodeSuccess
	result := &CallbackResult{
		TrackingID:  trackingID,
		Success:     success,
		RedirectURL: s.checkoutURL(trackingID, success),
	}

	// 2. 查找订单
	order, err := s.orderRepo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.metrics.PaymentCallbacks.WithLabelValues("unknown_order").Inc()
			logger.Ctx(ctx).Warn().Str("op", "PaymentCallback").Str("tracking_id", trackingID).Msg("gateway callback for unknown order")
			return result, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "order lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	// 3. 条件更新：只有 pending 的订单会被改变
	target := domain.PaymentFailed
	if success {
		target = domain.PaymentPaid
	}
	changed, current, err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, target, domain.PaymentPending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update payment status failed")
		logger.Ctx(ctx).Error().Err(err).Str("op", "PaymentCallback").Str("order_id", order.ID).Msg("failed to update payment status")
		return nil, err
	}
	result.Changed = changed

	log := logger.Ctx(ctx).With().
		Str("op", "PaymentCallback").
		Str("order_id", order.ID).
		Str("tracking_id", trackingID).
		Str("response_code", responseCode).
		Str("payment_status", string(current)).
		Logger()
	switch {
	case changed:
		s.metrics.PaymentCallbacks.WithLabelValues(string(target)).Inc()
		log.Info().Msg("payment status updated from gateway callback")
		s.events.Emit(ctx, domain.NewPaymentStatusChanged(order, target, s.now()))
	case current == target:
		s.metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		log.Info().Msg("duplicate gateway callback ignored")
	default:
		s.metrics.PaymentCallbacks.WithLabelValues("conflict").Inc()
		log.Warn().Str("callback_status", string(target)).Msg("gateway callback conflicts with current status, left unchanged")
	}
	return result, nil
}

func (s *PaymentService) checkoutURL(trackingID string, success bool) string {
	status := "failed"
	if success {
		status = "success"
	}
	q := url.Values{}
	q.Set("trackingId", trackingID)
	q.Set("status", status)
	return s.frontendBase + "/checkout?" + q.Encode()
}
