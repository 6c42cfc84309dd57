package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/metrics"
	orderapp "marketplace/internal/service/order/application"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/infrastructure"
	"marketplace/internal/service/payment/gateway"
)

const salt = "test-salt"

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var (
	customer = auth.NewPrincipal("cust-1", "c1@example.com", "C1", []string{"customer"})
	stranger = auth.NewPrincipal("cust-2", "c2@example.com", "C2", []string{"customer"})
)

type PaymentServiceSuite struct {
	suite.Suite
	repo      *infrastructure.MemoryOrderRepository
	publisher *recordingPublisher
	merchant  *gateway.Merchant
	svc       *PaymentService
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.repo = infrastructure.NewMemoryOrderRepository()
	s.publisher = &recordingPublisher{}

	cfg := config.Default().Gateway
	cfg.MerchantID = "MC-TEST"
	cfg.Password = "secret"
	cfg.IntegritySalt = salt
	merchant, err := gateway.NewMerchant(cfg)
	s.Require().NoError(err)
	s.merchant = merchant

	m := metrics.NewServerMetrics("test", prometheus.NewRegistry())
	events := orderapp.NewEventEmitter(s.publisher, m)
	s.svc = NewPaymentService(s.repo, merchant, events, noop.NewTracerProvider().Tracer("test"), m, "http://shop.local/")
	s.svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
}

func (s *PaymentServiceSuite) placeOrder(method string) *domain.Order {
	o, err := domain.NewOrder(domain.Draft{
		CustomerID:   customer.AccountID,
		FirstName:    "C",
		LastName:     "One",
		Phone:        "0300",
		Email:        customer.Email,
		HouseAddress: "Somewhere",
		Items: []domain.OrderItem{
			{ProductID: "p1", Price: decimal.RequireFromString("999.99"), Quantity: 1, StoreID: "s1"},
		},
		ItemsTotal:    decimal.RequireFromString("999.99"),
		ShippingFee:   decimal.RequireFromString("100"),
		PaymentMethod: method,
	}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.repo.Create(context.Background(), o))
	return o
}

// callback 构造一份网关回调表单并签名
func (s *PaymentServiceSuite) callback(trackingID, code string) gateway.Fields {
	f := gateway.Fields{
		gateway.FieldBillReference:   trackingID,
		gateway.FieldResponseCode:    code,
		gateway.FieldResponseMessage: "done",
		gateway.FieldAmount:          "109999",
		gateway.FieldMerchantID:      "MC-TEST",
	}
	f[gateway.FieldSecureHash] = gateway.SecureHash(salt, f)
	return f
}

func (s *PaymentServiceSuite) status(orderID string) domain.PaymentStatus {
	o, err := s.repo.FindByID(context.Background(), orderID)
	s.Require().NoError(err)
	return o.PaymentStatus
}

func (s *PaymentServiceSuite) TestPrepare() {
	o := s.placeOrder("Gateway")

	resp, err := s.svc.Prepare(context.Background(), customer, o.ID)
	s.Require().NoError(err)
	s.Equal(s.merchant.Endpoint(), resp.PaymentURL)

	f := resp.PaymentFields
	s.Equal("109999", f[gateway.FieldAmount])
	s.Equal(o.TrackingID, f[gateway.FieldBillReference])
	s.Equal(o.ID, f[gateway.FieldOrderCorrelationID])
	s.Equal("20240501150000", f[gateway.FieldTxnDateTime])
	s.True(gateway.Verify(salt, f))
}

func (s *PaymentServiceSuite) TestPrepareRejections() {
	ctx := context.Background()
	gw := s.placeOrder("Gateway")
	cod := s.placeOrder("COD")

	_, err := s.svc.Prepare(ctx, customer, "")
	s.True(errors.Is(err, apperr.ErrValidation))

	_, err = s.svc.Prepare(ctx, customer, "missing")
	s.True(errors.Is(err, apperr.ErrNotFound))

	_, err = s.svc.Prepare(ctx, stranger, gw.ID)
	s.True(errors.Is(err, apperr.ErrForbidden))

	_, err = s.svc.Prepare(ctx, customer, cod.ID)
	s.True(errors.Is(err, apperr.ErrInvalidState))

	_, _, err = s.repo.UpdatePaymentStatus(ctx, gw.ID, domain.PaymentPaid, domain.PaymentPending)
	s.Require().NoError(err)
	_, err = s.svc.Prepare(ctx, customer, gw.ID)
	s.True(errors.Is(err, apperr.ErrInvalidState))
}

func (s *PaymentServiceSuite) TestCallbackSuccess() {
	o := s.placeOrder("Gateway")

	res, err := s.svc.HandleCallback(context.Background(), s.callback(o.TrackingID, "000"))
	s.Require().NoError(err)
	s.True(res.Success)
	s.True(res.Changed)
	s.Equal("http://shop.local/checkout?status=success&trackingId="+o.TrackingID, res.RedirectURL)
	s.Equal(domain.PaymentPaid, s.status(o.ID))
	s.Equal(1, s.publisher.count())
}

func (s *PaymentServiceSuite) TestCallbackFailure() {
	o := s.placeOrder("Gateway")

	res, err := s.svc.HandleCallback(context.Background(), s.callback(o.TrackingID, "124"))
	s.Require().NoError(err)
	s.False(res.Success)
	s.Equal("http://shop.local/checkout?status=failed&trackingId="+o.TrackingID, res.RedirectURL)
	s.Equal(domain.PaymentFailed, s.status(o.ID))
}

func (s *PaymentServiceSuite) TestDuplicateCallbackIsHarmless() {
	o := s.placeOrder("Gateway")
	ctx := context.Background()

	_, err := s.svc.HandleCallback(ctx, s.callback(o.TrackingID, "000"))
	s.Require().NoError(err)
	before, err := s.repo.FindByID(ctx, o.ID)
	s.Require().NoError(err)

	res, err := s.svc.HandleCallback(ctx, s.callback(o.TrackingID, "000"))
	s.Require().NoError(err)
	s.False(res.Changed)
	s.True(res.Success)

	after, err := s.repo.FindByID(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(before.Version, after.Version)
	s.Equal(1, s.publisher.count())
}

func (s *PaymentServiceSuite) TestConflictingCallbackLeavesStatus() {
	o := s.placeOrder("Gateway")
	ctx := context.Background()

	_, err := s.svc.HandleCallback(ctx, s.callback(o.TrackingID, "000"))
	s.Require().NoError(err)

	res, err := s.svc.HandleCallback(ctx, s.callback(o.TrackingID, "999"))
	s.Require().NoError(err)
	s.False(res.Changed)
	s.Equal(domain.PaymentPaid, s.status(o.ID))
}

func (s *PaymentServiceSuite) TestTamperedCallbackIsRejected() {
	o := s.placeOrder("Gateway")
	f := s.callback(o.TrackingID, "124")
	f[gateway.FieldResponseCode] = "000"

	_, err := s.svc.HandleCallback(context.Background(), f)
	s.Require().Error(err)
	s.True(errors.Is(err, apperr.ErrIntegrity))
	s.Equal(domain.PaymentPending, s.status(o.ID))
	s.Zero(s.publisher.count())

	delete(f, gateway.FieldSecureHash)
	_, err = s.svc.HandleCallback(context.Background(), f)
	s.True(errors.Is(err, apperr.ErrIntegrity))
}

func (s *PaymentServiceSuite) TestUnknownOrderIsAcknowledged() {
	res, err := s.svc.HandleCallback(context.Background(), s.callback("TRK-00000000", "000"))
	s.Require().NoError(err)
	s.False(res.Changed)
	s.Equal("TRK-00000000", res.TrackingID)
	s.Contains(res.RedirectURL, "status=success")
}
