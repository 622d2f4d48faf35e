package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/config"
	"github.com/iliyamo/parking-lot-billing/internal/middleware"
	"github.com/iliyamo/parking-lot-billing/internal/model"
	"github.com/iliyamo/parking-lot-billing/internal/realtime"
	"github.com/iliyamo/parking-lot-billing/internal/repository"
	"github.com/iliyamo/parking-lot-billing/internal/utils"
)

// Record override actions.
const (
	ActionMarkPaid  = "mark_paid"
	ActionForceExit = "force_exit"
)

// defaultHistoryDays is the look-back of the vehicle history view.
const defaultHistoryDays = 7

// AdminHandler bundles the dashboard endpoints.
type AdminHandler struct {
	Cfg      config.Config
	Admins   *repository.AdminRepo
	Ledger   *repository.Ledger
	Payments *billing.Payments
	Coupons  *billing.Coupons
	Gate     *billing.Gate
	Hub      *realtime.Hub
	Now      billing.Clock
}

// NewAdminHandler panics if a dependency is nil.
func NewAdminHandler(cfg config.Config, admins *repository.AdminRepo, ledger *repository.Ledger, p *billing.Payments, cp *billing.Coupons, g *billing.Gate, hub *realtime.Hub) *AdminHandler {
	if admins == nil || ledger == nil || p == nil || cp == nil || g == nil || hub == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Cfg: cfg, Admins: admins, Ledger: ledger, Payments: p, Coupons: cp, Gate: g, Hub: hub, Now: utcNow}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type adminView struct {
	ID       uint64   `json:"id"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	LotIDs   []uint64 `json:"lot_ids"`
}

func newAdminView(a model.Admin) adminView {
	ids := a.LotIDs
	if ids == nil {
		ids = []uint64{}
	}
	return adminView{ID: a.ID, Username: a.Username, Role: a.Role, LotIDs: ids}
}

type loginResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Admin       adminView `json:"admin"`
}

type createLotReq struct {
	Name         string           `json:"name" validate:"required,max=100"`
	Address      string           `json:"address" validate:"max=255"`
	TotalSpaces  int              `json:"total_spaces" validate:"gt=0"`
	HourlyRate   decimal.Decimal  `json:"hourly_rate"`
	DailyMaxRate *decimal.Decimal `json:"daily_max_rate"`
}

type recordReq struct {
	Action string           `json:"action" validate:"required,oneof=mark_paid force_exit"`
	Amount *decimal.Decimal `json:"amount"`
}

type generateCouponsReq struct {
	ParkingLotID uint64 `json:"parking_lot_id" validate:"required"`
	PartnerName  string `json:"partner_name" validate:"max=100"`
	Quantity     int    `json:"quantity" validate:"omitempty,min=1,max=10"`
}

type transactionView struct {
	TransactionID string              `json:"transaction_id"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	PaidAt        time.Time           `json:"paid_at"`
}

// Login handles POST /admin/login and returns a bearer token carrying the
// admin's role and lot assignments.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Admins.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.BurnPasswordCheck(req.Password, h.Cfg.BcryptCost)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid credentials"})
		}
		return fail(c, storageFailure("load admin", err))
	}
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.ID, a.Role, a.LotIDs, h.Cfg.AccessTTL())
	if err != nil {
		return fail(c, storageFailure("issue token", err))
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		ExpiresAt:   tok.Exp,
		Admin:       newAdminView(a),
	})
}

// Profile handles GET /admin/profile.
func (h *AdminHandler) Profile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Admins.GetByID(ctx, middleware.CurrentAdmin(c).ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "admin_not_found", "message": "admin account no longer exists"})
		}
		return fail(c, storageFailure("load admin", err))
	}
	return c.JSON(http.StatusOK, newAdminView(a))
}

// ListLots handles GET /admin/lots.  Lot admins only see their lots.
func (h *AdminHandler) ListLots(c echo.Context) error {
	me := middleware.CurrentAdmin(c)
	var ids []uint64
	if me.Role != model.RoleSuperAdmin {
		if len(me.LotIDs) == 0 {
			return c.JSON(http.StatusOK, echo.Map{"lots": []lotView{}})
		}
		ids = me.LotIDs
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Ledger.Lots.ListWithOccupancy(ctx, ids)
	if err != nil {
		return fail(c, storageFailure("list lots", err))
	}
	out := make([]lotView, 0, len(list))
	for _, o := range list {
		out = append(out, newLotView(o))
	}
	return c.JSON(http.StatusOK, echo.Map{"lots": out})
}

// CreateLot handles POST /admin/lots (super admins only).
func (h *AdminHandler) CreateLot(c echo.Context) error {
	var req createLotReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if !req.HourlyRate.IsPositive() {
		return fail(c, billing.ErrInvalidLot.WithReason("hourly_rate must be positive"))
	}
	lot := model.ParkingLot{
		Name:        strings.TrimSpace(req.Name),
		Address:     strings.TrimSpace(req.Address),
		TotalSpaces: req.TotalSpaces,
		HourlyRate:  req.HourlyRate,
		CreatedAt:   h.Now(),
	}
	if req.DailyMaxRate != nil {
		if !req.DailyMaxRate.IsPositive() {
			return fail(c, billing.ErrInvalidLot.WithReason("daily_max_rate must be positive when set"))
		}
		lot.DailyMaxRate = decimal.NewNullDecimal(*req.DailyMaxRate)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Ledger.Lots.Create(ctx, &lot); err != nil {
		return fail(c, storageFailure("create lot", err))
	}
	return c.JSON(http.StatusCreated, newLotView(model.LotOccupancy{Lot: lot}))
}

// LotVehicles handles GET /admin/lots/:id/vehicles?status=current|history&days=.
// Lot access is checked by middleware.
func (h *AdminHandler) LotVehicles(c echo.Context) error {
	lotID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid lot id")
	}
	status := c.QueryParam("status")
	if status == "" {
		status = "current"
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.Ledger.Lots.GetByID(ctx, lotID); err != nil {
		return fail(c, lotLookupError(err))
	}
	now := h.Now()
	var (
		list []model.ParkingSession
		err  error
	)
	switch status {
	case "current":
		list, err = h.Ledger.Sessions.ListOpenByLot(ctx, lotID)
	case "history":
		days, ok := daysParam(c, defaultHistoryDays)
		if !ok {
			return badRequest(c, "days must be a positive integer")
		}
		list, err = h.Ledger.Sessions.ListClosedByLotSince(ctx, lotID, now.AddDate(0, 0, -days))
	default:
		return badRequest(c, "status must be current or history")
	}
	if err != nil {
		return fail(c, storageFailure("list vehicles", err))
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionView(s, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"lot_id": lotID, "status": status, "vehicles": out, "count": len(out)})
}

// Record handles GET /admin/records/:id: a session with its transactions.
func (h *AdminHandler) Record(c echo.Context) error {
	s, ok, err := h.loadRecord(c)
	if !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	txns, err := h.Ledger.Payments.ListBySession(ctx, s.ID)
	if err != nil {
		return fail(c, storageFailure("list transactions", err))
	}
	out := make([]transactionView, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionView{TransactionID: t.TransactionID, Amount: t.Amount, PaymentMethod: t.Method, PaidAt: t.PaidAt.UTC()})
	}
	return c.JSON(http.StatusOK, echo.Map{"session": newSessionView(s, h.Now()), "transactions": out})
}

// UpdateRecord handles PUT /admin/records/:id: mark_paid records a manual
// payment of amount, force_exit closes the session regardless of payment.
func (h *AdminHandler) UpdateRecord(c echo.Context) error {
	var req recordReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	s, ok, err := h.loadRecord(c)
	if !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	switch req.Action {
	case ActionMarkPaid:
		if req.Amount == nil {
			return badRequest(c, "amount is required for mark_paid")
		}
		rc, err := h.Payments.MarkPaid(ctx, s.ID, *req.Amount)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, newReceiptView(rc))
	default:
		closed, err := h.Gate.ForceExit(ctx, s.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, newSessionView(closed, closed.ExitTime.Time))
	}
}

// loadRecord resolves the :id session and checks lot access.  When ok is
// false the response has been written and err is its result.
func (h *AdminHandler) loadRecord(c echo.Context) (model.ParkingSession, bool, error) {
	id, valid := idParam(c, "id")
	if !valid {
		return model.ParkingSession{}, false, badRequest(c, "invalid record id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Ledger.SessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, false, fail(c, billing.ErrSessionNotFound)
		}
		return s, false, fail(c, storageFailure("load session", err))
	}
	if !middleware.CanAccessLot(c, s.LotID) {
		return s, false, forbidden(c)
	}
	return s, true, nil
}

// GenerateCoupons handles POST /admin/generate-coupon.  Quantity defaults
// to one and is capped at ten.
func (h *AdminHandler) GenerateCoupons(c echo.Context) error {
	var req generateCouponsReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if !middleware.CanAccessLot(c, req.ParkingLotID) {
		return forbidden(c)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Coupons.IssueBatch(ctx, req.ParkingLotID, req.PartnerName, req.Quantity)
	out := make([]couponView, 0, len(list))
	for _, cp := range list {
		out = append(out, newCouponView(cp, cp.GeneratedAt))
	}
	if err != nil {
		// Coupons issued before the failure are valid and must reach the caller.
		return failWith(c, err, echo.Map{"coupons": out, "count": len(out)})
	}
	return c.JSON(http.StatusCreated, echo.Map{"coupons": out, "count": len(out)})
}

// ListCoupons handles GET /admin/coupons?lot_id=&days=.  Without lot_id a
// lot admin sees the coupons of all their lots.
func (h *AdminHandler) ListCoupons(c echo.Context) error {
	var lotID uint64
	if raw := c.QueryParam("lot_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return badRequest(c, "invalid lot_id")
		}
		if !middleware.CanAccessLot(c, id) {
			return forbidden(c)
		}
		lotID = id
	}
	days, ok := daysParam(c, billing.DefaultHistoryDays)
	if !ok {
		return badRequest(c, "days must be a positive integer")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Coupons.History(ctx, lotID, days)
	if err != nil {
		return fail(c, err)
	}
	now := h.Now()
	out := make([]couponView, 0, len(list))
	for _, e := range list {
		if lotID == 0 && !middleware.CanAccessLot(c, e.LotID) {
			continue
		}
		out = append(out, newCouponView(e.Coupon, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": out, "count": len(out), "days": days})
}

// SweepCoupons handles POST /admin/coupons/sweep and runs the cleanup the
// scheduler otherwise runs periodically.
func (h *AdminHandler) SweepCoupons(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Coupons.SweepExpired(ctx, h.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"expired_deleted":    res.ExpiredDeleted,
		"stale_used_deleted": res.StaleUsedDeleted,
		"swept_at":           res.SweptAt.UTC(),
	})
}

// Live handles GET /admin/ws and upgrades to the event feed.  Lot admins
// only receive events of their lots.
func (h *AdminHandler) Live(c echo.Context) error {
	me := middleware.CurrentAdmin(c)
	var lots []uint64
	if me.Role != model.RoleSuperAdmin {
		lots = append([]uint64{}, me.LotIDs...)
	}
	if err := h.Hub.Serve(c.Response(), c.Request(), lots); err != nil {
		c.Logger().Warnf("websocket upgrade failed: %v", err)
	}
	return nil
}

// daysParam parses ?days=, falling back to def when absent.
func daysParam(c echo.Context, def int) (int, bool) {
	raw := c.QueryParam("days")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 366 {
		return 0, false
	}
	return n, true
}
