package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apiutil "github.com/quresis/go-quresis-server/api/util"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
)

type IdentityApi struct {
	identityService *services.IdentityService
	validate        *validator.Validate
}

func NewIdentityApi(identityService *services.IdentityService) *IdentityApi {
	return &IdentityApi{
		identityService: identityService,
		validate:        validator.New(),
	}
}

// Register a quantum identity for the authenticated owner
// @Security Bearer
// @Summary Register a quantum identity
// @Tags Identity
// @Accept json
// @Produce json
// @Param input body types.InputRegisterIdentity true "PQC public key and optional threshold"
// @Success 201 {object} types.QuantumIdentity
// @Failure 400 {object} api.ApiError "invalid key length or threshold"
// @Failure 409 {object} api.ApiError "identity already registered"
// @Router /api/v1/identities [post]
func (ia *IdentityApi) RegisterIdentity(c *gin.Context) {
	owner, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	var input types.InputRegisterIdentity
	if !bindAndValidate(c, ia.validate, &input) {
		return
	}
	identity, err := ia.identityService.Register(c.Request.Context(), owner, input.PQCPublicKey, input.ThresholdAmount)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, identity)
}

// Get the last committed identity of an owner
// @Summary Get quantum identity
// @Tags Identity
// @Produce json
// @Param owner path string true "base58 owner key"
// @Success 200 {object} types.QuantumIdentity
// @Failure 404 {object} api.ApiError "identity not found"
// @Router /api/v1/identities/{owner} [get]
func (ia *IdentityApi) GetIdentity(c *gin.Context) {
	owner, err := apiutil.PathPublicKey(c, "owner")
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	identity, err := ia.identityService.Get(c.Request.Context(), owner)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// Rotate the PQC key of the authenticated owner
// @Security Bearer
// @Summary Rotate quantum key
// @Tags Identity
// @Accept json
// @Produce json
// @Param input body types.InputRotateKey true "new key and authorization signed by the current key"
// @Success 200 {object} types.QuantumIdentity
// @Failure 401 {object} api.ApiError "signature verification failed"
// @Failure 409 {object} api.ApiError "key version mismatch"
// @Failure 423 {object} api.ApiError "identity frozen"
// @Router /api/v1/identities/rotate [post]
func (ia *IdentityApi) RotateKey(c *gin.Context) {
	owner, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	var input types.InputRotateKey
	if !bindAndValidate(c, ia.validate, &input) {
		return
	}
	identity, err := ia.identityService.Rotate(c.Request.Context(), owner, &services.RotateKeyRequest{
		NewPQCPublicKey:    input.NewPQCPublicKey,
		OldKeySignature:    input.OldKeySignature,
		SignedMessage:      input.SignedMessage,
		ExpectedKeyVersion: input.ExpectedKeyVersion,
	})
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// Verify a signature against the owner's current PQC key
// @Summary Verify quantum signature
// @Tags Identity
// @Accept json
// @Produce json
// @Param owner path string true "base58 owner key"
// @Param input body types.InputVerifySignature true "message and signature"
// @Success 200 {object} types.OutputSignatureVerification
// @Failure 400 {object} api.ApiError "message too large"
// @Failure 423 {object} api.ApiError "identity frozen"
// @Router /api/v1/identities/{owner}/verify [post]
func (ia *IdentityApi) VerifySignature(c *gin.Context) {
	owner, err := apiutil.PathPublicKey(c, "owner")
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	var input types.InputVerifySignature
	if !bindAndValidate(c, ia.validate, &input) {
		return
	}
	valid, err := ia.identityService.VerifySignature(c.Request.Context(), owner, input.Message, input.Signature)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, &types.OutputSignatureVerification{Owner: owner.String(), Valid: valid})
}

// @Security Bearer
// @Summary Update the high value threshold
// @Tags Identity
// @Accept json
// @Produce json
// @Param input body types.InputUpdateThreshold true "new threshold"
// @Success 200 {object} types.QuantumIdentity
// @Failure 400 {object} api.ApiError "threshold out of bounds"
// @Router /api/v1/identities/threshold [put]
func (ia *IdentityApi) UpdateThreshold(c *gin.Context) {
	owner, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	var input types.InputUpdateThreshold
	if !bindAndValidate(c, ia.validate, &input) {
		return
	}
	identity, err := ia.identityService.UpdateThreshold(c.Request.Context(), owner, input.ThresholdAmount)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// @Security Bearer
// @Summary Toggle the frozen flag
// @Tags Identity
// @Produce json
// @Success 200 {object} types.QuantumIdentity
// @Router /api/v1/identities/freeze [post]
func (ia *IdentityApi) ToggleFreeze(c *gin.Context) {
	owner, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	identity, err := ia.identityService.ToggleFreeze(c.Request.Context(), owner)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// @Security Bearer
// @Summary Close the identity
// @Tags Identity
// @Produce json
// @Success 200 {object} types.OutputIdentityClosed
// @Failure 404 {object} api.ApiError "identity not found"
// @Router /api/v1/identities [delete]
func (ia *IdentityApi) CloseIdentity(c *gin.Context) {
	owner, ok := apiutil.CallerFromContext(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "caller not found")
		return
	}
	if err := ia.identityService.Close(c.Request.Context(), owner); err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, &types.OutputIdentityClosed{Owner: owner.String(), Closed: true})
}
