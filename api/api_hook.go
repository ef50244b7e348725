package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apiutil "github.com/quresis/go-quresis-server/api/util"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
)

const maxPageSize = 100

type HookApi struct {
	hookService   *services.HookService
	transferGuard *services.TransferGuard
	validate      *validator.Validate
}

func NewHookApi(hookService *services.HookService, transferGuard *services.TransferGuard) *HookApi {
	return &HookApi{
		hookService:   hookService,
		transferGuard: transferGuard,
		validate:      validator.New(),
	}
}

// Initialize the transfer hook of an asset. The caller becomes the hook authority.
// @Security Bearer
// @Summary Initialize transfer hook
// @Tags Hook
// @Accept json
// @Produce json
// @Param input body types.InputInitializeHook true "asset and enforcement mode"
// @Success 201 {object} types.HookConfig
// @Failure 400 {object} api.ApiError "invalid asset or mode"
// @Failure 409 {object} api.ApiError "hook already initialized"
// @Router /api/v1/hooks [post]
func (ha *HookApi) InitializeHook(c *gin.Context) {
	authority, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	var input types.InputInitializeHook
	if !bindAndValidate(c, ha.validate, &input) {
		return
	}
	asset, err := types.ParsePublicKey(input.Asset)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	hook, err := ha.hookService.InitializeHook(c.Request.Context(), asset, authority, input.EnforcementMode)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hook)
}

// @Security Bearer
// @Summary Update enforcement mode
// @Tags Hook
// @Accept json
// @Produce json
// @Param asset path string true "base58 asset key"
// @Param input body types.InputUpdateEnforcementMode true "new mode"
// @Success 200 {object} types.HookConfig
// @Failure 403 {object} api.ApiError "caller is not the hook authority"
// @Failure 404 {object} api.ApiError "hook not initialized"
// @Router /api/v1/hooks/{asset}/mode [put]
func (ha *HookApi) UpdateEnforcementMode(c *gin.Context) {
	caller, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	asset, err := apiutil.PathPublicKey(c, "asset")
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	var input types.InputUpdateEnforcementMode
	if !bindAndValidate(c, ha.validate, &input) {
		return
	}
	hook, err := ha.hookService.UpdateEnforcementMode(c.Request.Context(), asset, caller, input.EnforcementMode)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, hook)
}

// @Summary Hook statistics
// @Tags Hook
// @Produce json
// @Param asset path string true "base58 asset key"
// @Success 200 {object} types.OutputHookStatistics
// @Failure 404 {object} api.ApiError "hook not initialized"
// @Router /api/v1/hooks/{asset}/statistics [get]
func (ha *HookApi) GetStatistics(c *gin.Context) {
	asset, err := apiutil.PathPublicKey(c, "asset")
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	hook, err := ha.hookService.GetStatistics(c.Request.Context(), asset)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewOutputHookStatistics(hook))
}

// @Summary List hooks
// @Tags Hook
// @Produce json
// @Param limit query int false "page size (max 100)"
// @Param skip query int false "offset"
// @Success 200 {array} types.OutputHookStatistics
// @Router /api/v1/hooks [get]
func (ha *HookApi) ListHooks(c *gin.Context) {
	limit, skip := pageParams(c)
	hooks, err := ha.hookService.ListHooks(c.Request.Context(), limit, skip)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	out := make([]*types.OutputHookStatistics, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, types.NewOutputHookStatistics(h))
	}
	c.JSON(http.StatusOK, out)
}

// Check a transfer. ALLOW answers 200, BLOCK answers 403 with the verdict as body.
// @Summary Execute transfer check
// @Tags Hook
// @Accept json
// @Produce json
// @Param asset path string true "base58 asset key"
// @Param input body types.InputTransferCheck true "sender and amount"
// @Success 200 {object} types.Verdict
// @Failure 403 {object} types.Verdict "transfer blocked"
// @Failure 404 {object} api.ApiError "hook not initialized"
// @Router /api/v1/hooks/{asset}/check [post]
func (ha *HookApi) ExecuteTransferCheck(c *gin.Context) {
	asset, err := apiutil.PathPublicKey(c, "asset")
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	var input types.InputTransferCheck
	if !bindAndValidate(c, ha.validate, &input) {
		return
	}
	sender, err := types.ParsePublicKey(input.Sender)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	verdict, err := ha.transferGuard.ExecuteTransferCheck(c.Request.Context(), asset, sender, input.Amount)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	writeVerdict(c, verdict)
}

// Check a transfer authorized by a PQC signature over the transfer authorization message
// @Summary Execute verified transfer check
// @Tags Hook
// @Accept json
// @Produce json
// @Param asset path string true "base58 asset key"
// @Param input body types.InputVerifiedTransferCheck true "sender, amount and signature"
// @Success 200 {object} types.Verdict
// @Failure 403 {object} types.Verdict "transfer blocked"
// @Router /api/v1/hooks/{asset}/verified-check [post]
func (ha *HookApi) ExecuteVerifiedTransferCheck(c *gin.Context) {
	asset, err := apiutil.PathPublicKey(c, "asset")
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	var input types.InputVerifiedTransferCheck
	if !bindAndValidate(c, ha.validate, &input) {
		return
	}
	sender, err := types.ParsePublicKey(input.Sender)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	verdict, err := ha.transferGuard.ExecuteVerifiedTransferCheck(c.Request.Context(), asset, sender, input.Amount, input.Signature)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	writeVerdict(c, verdict)
}

func writeVerdict(c *gin.Context, verdict *types.Verdict) {
	if !verdict.Allowed() {
		c.JSON(http.StatusForbidden, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func pageParams(c *gin.Context) (int, int) {
	limit := util.StringToInt(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	skip := util.StringToInt(c.Query("skip"))
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
