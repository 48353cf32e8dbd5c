package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakledger/claimflow/internal/application/service"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
	"github.com/oakledger/claimflow/internal/domain/policy"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	claimService      service.ClaimService
	decisionService   service.DecisionService
	complianceService service.ComplianceService
	ruleService       service.RuleService
	policyService     service.PolicyService
	voucherService    service.VoucherService
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	claimService service.ClaimService,
	decisionService service.DecisionService,
	complianceService service.ComplianceService,
	ruleService service.RuleService,
	policyService service.PolicyService,
	voucherService service.VoucherService,
	logger Logger,
) *Handlers {
	return &Handlers{
		claimService:      claimService,
		decisionService:   decisionService,
		complianceService: complianceService,
		ruleService:       ruleService,
		policyService:     policyService,
		voucherService:    voucherService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// statusFor maps service and domain sentinel errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrChainNotFound),
		errors.Is(err, service.ErrRuleNotFound),
		errors.Is(err, service.ErrPolicyNotFound),
		errors.Is(err, approval.ErrStepNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrUnauthorized),
		errors.Is(err, service.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrAlreadyResolved),
		errors.Is(err, approval.ErrNotActionable),
		errors.Is(err, service.ErrClaimNotEditable),
		errors.Is(err, service.ErrClaimNotDeletable),
		errors.Is(err, service.ErrClaimNotApproved),
		errors.Is(err, claim.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, approval.ErrInvalidDecision),
		errors.Is(err, approval.ErrNoApplicableRule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyClaim):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes an error response, hiding internal error detail on 500s
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

func (h *Handlers) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	h.ok(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// ---- Claims ----

// ItemResponse represents a line item in API responses
type ItemResponse struct {
	ID           string  `json:"id"`
	Category     string  `json:"category"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	ExchangeRate string  `json:"exchange_rate"`
	Normalized   string  `json:"normalized"`
	ExpenseDate  string  `json:"expense_date"`
	Vendor       string  `json:"vendor,omitempty"`
	ReceiptURL   string  `json:"receipt_url,omitempty"`
	ReceiptValid *bool   `json:"receipt_valid,omitempty"`
	ReceiptNote  string  `json:"receipt_note,omitempty"`
}

// ClaimResponse represents a claim in API responses
type ClaimResponse struct {
	ID           string         `json:"id"`
	OrgID        string         `json:"org_id"`
	SubmitterID  string         `json:"submitter_id"`
	Department   string         `json:"department,omitempty"`
	Title        string         `json:"title"`
	BaseCurrency string         `json:"base_currency"`
	Status       string         `json:"status"`
	Total        string         `json:"total"`
	Items        []ItemResponse `json:"items"`
	RejectReason string         `json:"reject_reason,omitempty"`
	CreatedAt    string         `json:"created_at"`
	SubmittedAt  *string        `json:"submitted_at,omitempty"`
	UpdatedAt    string         `json:"updated_at"`
}

func toItemResponse(item claim.LineItem) ItemResponse {
	return ItemResponse{
		ID:           item.ID.String(),
		Category:     string(item.Category),
		Amount:       item.Amount.String(),
		Currency:     item.Currency,
		ExchangeRate: item.ExchangeRate.String(),
		Normalized:   item.Normalized.String(),
		ExpenseDate:  item.ExpenseDate.Format("2006-01-02"),
		Vendor:       item.Vendor,
		ReceiptURL:   item.ReceiptURL,
		ReceiptValid: item.ReceiptValid,
		ReceiptNote:  item.ReceiptNote,
	}
}

func toClaimResponse(cl *claim.Claim) ClaimResponse {
	items := make([]ItemResponse, 0, len(cl.Items))
	for _, item := range cl.Items {
		items = append(items, toItemResponse(item))
	}
	resp := ClaimResponse{
		ID:           cl.ID.String(),
		OrgID:        cl.OrgID,
		SubmitterID:  cl.SubmitterID,
		Department:   cl.Department,
		Title:        cl.Title,
		BaseCurrency: cl.BaseCurrency,
		Status:       string(cl.Status),
		Total:        cl.TotalNormalized().String(),
		Items:        items,
		RejectReason: cl.RejectReason,
		CreatedAt:    cl.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    cl.UpdatedAt.Format(time.RFC3339),
	}
	if cl.SubmittedAt != nil {
		s := cl.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &s
	}
	return resp
}

// CreateClaimRequest represents the body of POST /api/claims
type CreateClaimRequest struct {
	OrgID        string `json:"org_id" binding:"required"`
	SubmitterID  string `json:"submitter_id" binding:"required"`
	Department   string `json:"department"`
	Title        string `json:"title" binding:"required"`
	BaseCurrency string `json:"base_currency" binding:"required"`
}

// CreateClaim handles POST /api/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	var req CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	cl, err := h.claimService.CreateClaim(c.Request.Context(), service.CreateClaimInput{
		OrgID:        req.OrgID,
		SubmitterID:  req.SubmitterID,
		Department:   req.Department,
		Title:        req.Title,
		BaseCurrency: req.BaseCurrency,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toClaimResponse(cl)})
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	OrgID  string `form:"org_id" binding:"required"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	var req ListClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "org_id is required"})
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	claims, err := h.claimService.ListClaims(c.Request.Context(), req.OrgID, req.Limit, req.Offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]ClaimResponse, 0, len(claims))
	for _, cl := range claims {
		out = append(out, toClaimResponse(cl))
	}
	h.ok(c, out)
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	cl, err := h.claimService.GetClaim(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toClaimResponse(cl))
}

// DeleteClaim handles DELETE /api/claims/:id
func (h *Handlers) DeleteClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actorID := c.GetHeader("X-User-ID")
	if actorID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "X-User-ID header is required"})
		return
	}

	if err := h.claimService.DeleteClaim(c.Request.Context(), id, actorID); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

// AddItemRequest represents the body of POST /api/claims/:id/items
type AddItemRequest struct {
	ActorID      string `json:"actor_id" binding:"required"`
	Category     string `json:"category" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	Currency     string `json:"currency" binding:"required"`
	ExchangeRate string `json:"exchange_rate" binding:"required"`
	ExpenseDate  string `json:"expense_date" binding:"required"`
	Vendor       string `json:"vendor"`
	ReceiptURL   string `json:"receipt_url"`
	ReceiptValid *bool  `json:"receipt_valid"`
	ReceiptNote  string `json:"receipt_note"`
}

// AddLineItem handles POST /api/claims/:id/items
func (h *Handlers) AddLineItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid amount"})
		return
	}
	rate, err := decimal.NewFromString(req.ExchangeRate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid exchange_rate"})
		return
	}
	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid expense_date, want YYYY-MM-DD"})
		return
	}

	item, err := h.claimService.AddLineItem(c.Request.Context(), id, req.ActorID, service.AddItemInput{
		Category:     claim.Category(req.Category),
		Amount:       amount,
		Currency:     req.Currency,
		ExchangeRate: rate,
		ExpenseDate:  expenseDate,
		Vendor:       req.Vendor,
		ReceiptURL:   req.ReceiptURL,
		ReceiptValid: req.ReceiptValid,
		ReceiptNote:  req.ReceiptNote,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toItemResponse(*item)})
}

// SubmitClaim handles POST /api/claims/:id/submit
func (h *Handlers) SubmitClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actorID := c.GetHeader("X-User-ID")
	if actorID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "X-User-ID header is required"})
		return
	}

	cl, err := h.claimService.SubmitClaim(c.Request.Context(), id, actorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toClaimResponse(cl))
}

// ReEditClaim handles POST /api/claims/:id/reedit
func (h *Handlers) ReEditClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actorID := c.GetHeader("X-User-ID")
	if actorID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "X-User-ID header is required"})
		return
	}

	if err := h.claimService.ReEditClaim(c.Request.Context(), id, actorID); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"status": string(claim.StatusDraft)})
}

// HistoryEntryResponse represents an audit trail entry in API responses
type HistoryEntryResponse struct {
	ActorID    string `json:"actor_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ClaimHistory handles GET /api/claims/:id/history
func (h *Handlers) ClaimHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	entries, err := h.claimService.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ActorID:    e.ActorID,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			Action:     e.Action,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	h.ok(c, out)
}

// AlertResponse represents a compliance risk alert in API responses
type AlertResponse struct {
	Kind        string  `json:"kind"`
	Severity    string  `json:"severity"`
	RuleName    string  `json:"rule_name,omitempty"`
	ItemID      *string `json:"item_id,omitempty"`
	Message     string  `json:"message"`
	Limit       string  `json:"limit,omitempty"`
	Actual      string  `json:"actual,omitempty"`
	PercentOver float64 `json:"percent_over,omitempty"`
	Remediation string  `json:"remediation,omitempty"`
}

// ClaimAlerts handles GET /api/claims/:id/alerts
func (h *Handlers) ClaimAlerts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	alerts, err := h.complianceService.Analyze(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp := AlertResponse{
			Kind:        string(a.Kind),
			Severity:    string(a.Severity),
			RuleName:    a.RuleName,
			Message:     a.Message,
			PercentOver: a.PercentOver,
			Remediation: a.Remediation,
		}
		if a.ItemID != nil {
			s := a.ItemID.String()
			resp.ItemID = &s
		}
		if !a.Limit.IsZero() {
			resp.Limit = a.Limit.String()
		}
		if !a.Actual.IsZero() {
			resp.Actual = a.Actual.String()
		}
		out = append(out, resp)
	}
	h.ok(c, out)
}

// IssueVoucher handles POST /api/claims/:id/voucher
func (h *Handlers) IssueVoucher(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.voucherService.IssueVoucher(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{
		"voucher_number": result.VoucherNumber,
		"file_path":      result.FilePath,
	})
}

// SettleClaim handles POST /api/claims/:id/settle
func (h *Handlers) SettleClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.voucherService.SettleClaim(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"status": string(claim.StatusPaid)})
}

// ---- Approval chain ----

// StepResponse represents an approval step in API responses
type StepResponse struct {
	ID         string  `json:"id"`
	Order      int     `json:"order"`
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	Approver   approval.Approver `json:"approver"`
	Status     string  `json:"status"`
	Comment    string  `json:"comment,omitempty"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
	Active     bool    `json:"active"`
}

// ChainResponse represents an approval chain in API responses
type ChainResponse struct {
	ClaimID  string         `json:"claim_id"`
	Complete bool           `json:"complete"`
	Rejected bool           `json:"rejected"`
	Steps    []StepResponse `json:"steps"`
}

func toChainResponse(chain *approval.Chain) ChainResponse {
	active := chain.ActiveIndex()
	steps := make([]StepResponse, 0, len(chain.Steps))
	for i, step := range chain.Steps {
		resp := StepResponse{
			ID:       step.ID.String(),
			Order:    step.Order,
			Type:     string(step.Type),
			Name:     step.Name,
			Approver: step.Approver,
			Status:   string(step.Status),
			Comment:  step.Comment,
			Active:   i == active,
		}
		if step.ResolvedAt != nil {
			s := step.ResolvedAt.Format(time.RFC3339)
			resp.ResolvedAt = &s
		}
		steps = append(steps, resp)
	}
	return ChainResponse{
		ClaimID:  chain.ClaimID.String(),
		Complete: chain.IsComplete(),
		Rejected: chain.IsRejected(),
		Steps:    steps,
	}
}

// GetChain handles GET /api/claims/:id/chain
func (h *Handlers) GetChain(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	chain, err := h.decisionService.GetChain(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toChainResponse(chain))
}

func actorFrom(c *gin.Context) (approval.Actor, bool) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "X-User-ID header is required"})
		return approval.Actor{}, false
	}
	var roles []string
	if raw := c.GetHeader("X-User-Roles"); raw != "" {
		for _, r := range strings.Split(raw, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
	}
	return approval.Actor{UserID: userID, Roles: roles}, true
}

// CanAct handles GET /api/claims/:id/chain/can-act
func (h *Handlers) CanAct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	can, err := h.decisionService.CanAct(c.Request.Context(), id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"can_act": can})
}

// DecisionRequest represents the body of POST /api/claims/:id/decision
type DecisionRequest struct {
	StepID   string `json:"step_id" binding:"required"`
	Decision string `json:"decision" binding:"required"`
	Comment  string `json:"comment"`
}

// OutcomeResponse represents a decision outcome in API responses
type OutcomeResponse struct {
	StepID        string   `json:"step_id"`
	StepStatus    string   `json:"step_status"`
	ChainComplete bool     `json:"chain_complete"`
	ChainRejected bool     `json:"chain_rejected"`
	SkippedSteps  []string `json:"skipped_steps,omitempty"`
}

func toOutcomeResponse(out *approval.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		StepID:        out.Step.ID.String(),
		StepStatus:    string(out.Step.Status),
		ChainComplete: out.ChainComplete,
		ChainRejected: out.ChainRejected,
	}
	for _, id := range out.SkippedSteps {
		resp.SkippedSteps = append(resp.SkippedSteps, id.String())
	}
	return resp
}

// RecordDecision handles POST /api/claims/:id/decision
func (h *Handlers) RecordDecision(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	stepID, err := uuid.Parse(req.StepID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid step_id"})
		return
	}

	outcome, err := h.decisionService.RecordDecision(c.Request.Context(), id, stepID, actor, approval.Decision(req.Decision), req.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toOutcomeResponse(outcome))
}

// SkipStepRequest represents the body of POST /api/claims/:id/skip
type SkipStepRequest struct {
	StepID string `json:"step_id" binding:"required"`
	Reason string `json:"reason"`
}

// SkipStep handles POST /api/claims/:id/skip
func (h *Handlers) SkipStep(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SkipStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	stepID, err := uuid.Parse(req.StepID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid step_id"})
		return
	}

	outcome, err := h.decisionService.SkipStep(c.Request.Context(), id, stepID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toOutcomeResponse(outcome))
}

// ---- Rules administration ----

// ConditionRequest represents one rule condition in admin requests
type ConditionRequest struct {
	Field  string   `json:"field" binding:"required"`
	Op     string   `json:"op" binding:"required"`
	Amount string   `json:"amount"`
	Values []string `json:"values"`
}

// StepTemplateRequest represents one chain step template in admin requests
type StepTemplateRequest struct {
	Type       string `json:"type" binding:"required"`
	Name       string `json:"name" binding:"required"`
	ApproverID string `json:"approver_id"`
	Role       string `json:"role"`
}

// RuleRequest represents the body of rule create/update requests
type RuleRequest struct {
	OrgID      string                `json:"org_id" binding:"required"`
	Name       string                `json:"name" binding:"required"`
	Priority   int                   `json:"priority"`
	IsActive   bool                  `json:"is_active"`
	Conditions []ConditionRequest    `json:"conditions"`
	Steps      []StepTemplateRequest `json:"steps"`
}

func (r RuleRequest) toInput() (service.RuleInput, error) {
	conditions := make([]approval.Condition, 0, len(r.Conditions))
	for _, cr := range r.Conditions {
		cond := approval.Condition{
			Field:  approval.ConditionField(cr.Field),
			Op:     approval.ConditionOp(cr.Op),
			Values: cr.Values,
		}
		if cr.Amount != "" {
			amount, err := decimal.NewFromString(cr.Amount)
			if err != nil {
				return service.RuleInput{}, err
			}
			cond.Amount = amount
		}
		conditions = append(conditions, cond)
	}
	steps := make([]approval.StepTemplate, 0, len(r.Steps))
	for _, sr := range r.Steps {
		steps = append(steps, approval.StepTemplate{
			Type:       approval.StepType(sr.Type),
			Name:       sr.Name,
			ApproverID: sr.ApproverID,
			Role:       sr.Role,
		})
	}
	return service.RuleInput{
		OrgID:      r.OrgID,
		Name:       r.Name,
		Priority:   r.Priority,
		IsActive:   r.IsActive,
		Conditions: conditions,
		Steps:      steps,
	}, nil
}

// RuleResponse represents an approval rule in API responses
type RuleResponse struct {
	ID         string                `json:"id"`
	OrgID      string                `json:"org_id"`
	Name       string                `json:"name"`
	Priority   int                   `json:"priority"`
	IsActive   bool                  `json:"is_active"`
	IsDefault  bool                  `json:"is_default"`
	Conditions []approval.Condition  `json:"conditions"`
	Steps      []approval.StepTemplate `json:"steps"`
}

func toRuleResponse(rule *approval.Rule) RuleResponse {
	return RuleResponse{
		ID:         rule.ID.String(),
		OrgID:      rule.OrgID,
		Name:       rule.Name,
		Priority:   rule.Priority,
		IsActive:   rule.IsActive,
		IsDefault:  rule.IsDefault,
		Conditions: rule.Conditions,
		Steps:      rule.Steps,
	}
}

// CreateRule handles POST /api/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid condition amount"})
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toRuleResponse(rule)})
}

// ListRules handles GET /api/rules
func (h *Handlers) ListRules(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "org_id is required"})
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), orgID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	h.ok(c, out)
}

// GetRule handles GET /api/rules/:id
func (h *Handlers) GetRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toRuleResponse(rule))
}

// UpdateRule handles PUT /api/rules/:id
func (h *Handlers) UpdateRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid condition amount"})
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toRuleResponse(rule))
}

// DeleteRule handles DELETE /api/rules/:id
func (h *Handlers) DeleteRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

// SetDefaultRuleRequest represents the body of POST /api/rules/:id/default
type SetDefaultRuleRequest struct {
	OrgID string `json:"org_id" binding:"required"`
}

// SetDefaultRule handles POST /api/rules/:id/default
func (h *Handlers) SetDefaultRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetDefaultRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "org_id is required"})
		return
	}

	if err := h.ruleService.SetDefaultRule(c.Request.Context(), req.OrgID, id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"default": true})
}

// SetRuleActiveRequest represents the body of POST /api/rules/:id/active
type SetRuleActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetRuleActive handles POST /api/rules/:id/active
func (h *Handlers) SetRuleActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetRuleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "active is required"})
		return
	}

	if err := h.ruleService.SetRuleActive(c.Request.Context(), id, *req.Active); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"active": *req.Active})
}

// ---- Policies administration ----

// PolicyRuleRequest represents one policy rule in admin requests
type PolicyRuleRequest struct {
	Name             string   `json:"name" binding:"required"`
	Categories       []string `json:"categories"`
	LimitType        string   `json:"limit_type"`
	LimitAmount      string   `json:"limit_amount"`
	LimitCurrency    string   `json:"limit_currency"`
	RequiresReceipt  bool     `json:"requires_receipt"`
	RequiresApproval bool     `json:"requires_approval"`
}

// PolicyRequest represents the body of policy create/update requests
type PolicyRequest struct {
	OrgID    string              `json:"org_id" binding:"required"`
	Name     string              `json:"name" binding:"required"`
	IsActive bool                `json:"is_active"`
	Rules    []PolicyRuleRequest `json:"rules"`
}

func (r PolicyRequest) toInput() (service.PolicyInput, error) {
	rules := make([]policy.Rule, 0, len(r.Rules))
	for _, rr := range r.Rules {
		categories := make([]claim.Category, 0, len(rr.Categories))
		for _, cat := range rr.Categories {
			categories = append(categories, claim.Category(cat))
		}
		rule := policy.Rule{
			Name:             rr.Name,
			Categories:       categories,
			RequiresReceipt:  rr.RequiresReceipt,
			RequiresApproval: rr.RequiresApproval,
		}
		if rr.LimitType != "" {
			amount, err := decimal.NewFromString(rr.LimitAmount)
			if err != nil {
				return service.PolicyInput{}, err
			}
			rule.Limit = &policy.Limit{
				Type:     policy.LimitType(rr.LimitType),
				Amount:   amount,
				Currency: rr.LimitCurrency,
			}
		}
		rules = append(rules, rule)
	}
	return service.PolicyInput{
		OrgID:    r.OrgID,
		Name:     r.Name,
		IsActive: r.IsActive,
		Rules:    rules,
	}, nil
}

// PolicyRuleResponse represents one policy rule in API responses
type PolicyRuleResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Categories       []string `json:"categories"`
	LimitType        string   `json:"limit_type,omitempty"`
	LimitAmount      string   `json:"limit_amount,omitempty"`
	LimitCurrency    string   `json:"limit_currency,omitempty"`
	RequiresReceipt  bool     `json:"requires_receipt"`
	RequiresApproval bool     `json:"requires_approval"`
}

// PolicyResponse represents a compliance policy in API responses
type PolicyResponse struct {
	ID       string               `json:"id"`
	OrgID    string               `json:"org_id"`
	Name     string               `json:"name"`
	IsActive bool                 `json:"is_active"`
	Rules    []PolicyRuleResponse `json:"rules"`
}

func toPolicyResponse(p *policy.Policy) PolicyResponse {
	rules := make([]PolicyRuleResponse, 0, len(p.Rules))
	for _, rule := range p.Rules {
		categories := make([]string, 0, len(rule.Categories))
		for _, cat := range rule.Categories {
			categories = append(categories, string(cat))
		}
		resp := PolicyRuleResponse{
			ID:               rule.ID.String(),
			Name:             rule.Name,
			Categories:       categories,
			RequiresReceipt:  rule.RequiresReceipt,
			RequiresApproval: rule.RequiresApproval,
		}
		if rule.Limit != nil {
			resp.LimitType = string(rule.Limit.Type)
			resp.LimitAmount = rule.Limit.Amount.String()
			resp.LimitCurrency = rule.Limit.Currency
		}
		rules = append(rules, resp)
	}
	return PolicyResponse{
		ID:       p.ID.String(),
		OrgID:    p.OrgID,
		Name:     p.Name,
		IsActive: p.IsActive,
		Rules:    rules,
	}
}

// CreatePolicy handles POST /api/policies
func (h *Handlers) CreatePolicy(c *gin.Context) {
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid limit amount"})
		return
	}

	p, err := h.policyService.CreatePolicy(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toPolicyResponse(p)})
}

// ListPolicies handles GET /api/policies
func (h *Handlers) ListPolicies(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "org_id is required"})
		return
	}

	policies, err := h.policyService.ListPolicies(c.Request.Context(), orgID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, toPolicyResponse(p))
	}
	h.ok(c, out)
}

// GetPolicy handles GET /api/policies/:id
func (h *Handlers) GetPolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.policyService.GetPolicy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toPolicyResponse(p))
}

// UpdatePolicy handles PUT /api/policies/:id
func (h *Handlers) UpdatePolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid limit amount"})
		return
	}

	p, err := h.policyService.UpdatePolicy(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toPolicyResponse(p))
}

// DeletePolicy handles DELETE /api/policies/:id
func (h *Handlers) DeletePolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.policyService.DeletePolicy(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}
