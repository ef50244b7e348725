package api

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quresis/go-quresis-server/api/interceptors"
	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	sink   *eventlog.MemorySink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	selector := repository.NewCouchDBSelector()
	selector.AddDB(repository.NewMemoryRepository(repository.Identity))
	selector.AddDB(repository.NewMemoryRepository(repository.Hook))
	selector.AddDB(repository.NewMemoryRepository(repository.Event))

	oracle, err := pqc.NewMLDSAOracle(8)
	require.NoError(t, err)
	opts := services.DefaultGuardOptions()
	opts.MinThreshold = 1
	sink := eventlog.NewMemorySink()
	deps := &services.Dependencies{
		DBSelector: selector,
		Oracle:     oracle,
		Locker:     locker.NewLocalLocker(16),
		Events:     sink,
		Clock:      util.NewManualClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 500),
		Options:    opts,
	}
	identities := services.NewIdentityService(deps)
	identityApi := NewIdentityApi(identities)
	hookApi := NewHookApi(services.NewHookService(deps), services.NewTransferGuard(deps, identities))

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.GET("/identities/:owner", identityApi.GetIdentity)
	v1.POST("/identities/:owner/verify", identityApi.VerifySignature)
	v1.GET("/hooks/:asset/statistics", hookApi.GetStatistics)
	v1.POST("/hooks/:asset/check", hookApi.ExecuteTransferCheck)
	v1.POST("/hooks/:asset/verified-check", hookApi.ExecuteVerifiedTransferCheck)

	owner := v1.Group("/", interceptors.JWSMiddleware(time.Minute))
	owner.POST("/identities", identityApi.RegisterIdentity)
	owner.POST("/identities/rotate", identityApi.RotateKey)
	owner.PUT("/identities/threshold", identityApi.UpdateThreshold)
	owner.POST("/identities/freeze", identityApi.ToggleFreeze)
	owner.DELETE("/identities", identityApi.CloseIdentity)
	owner.POST("/hooks", hookApi.InitializeHook)
	owner.PUT("/hooks/:asset/mode", hookApi.UpdateEnforcementMode)

	return &testServer{router: router, sink: sink}
}

type caller struct {
	key   types.PublicKey
	priv  ed25519.PrivateKey
	token string
}

func newCaller(t *testing.T) *caller {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	key, err := types.PublicKeyFromEd25519(pub)
	require.NoError(t, err)
	token, err := interceptors.GenerateJWSToken(priv, time.Minute)
	require.NoError(t, err)
	return &caller{key: key, priv: priv, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, c *caller) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c != nil {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

type mldsaKey struct {
	public []byte
	sign   func(msg []byte) []byte
}

func newMLDSAKey(t *testing.T, level int) *mldsaKey {
	t.Helper()
	scheme, err := pqc.SchemeByLevel(level)
	require.NoError(t, err)
	pk, sk, err := scheme.GenerateKey()
	require.NoError(t, err)
	raw, err := pk.MarshalBinary()
	require.NoError(t, err)
	return &mldsaKey{
		public: raw,
		sign:   func(msg []byte) []byte { return scheme.Sign(sk, msg, nil) },
	}
}

func TestIdentityLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := newCaller(t)
	key44 := newMLDSAKey(t, 44)

	w := s.do(t, http.MethodPost, "/api/v1/identities", &types.InputRegisterIdentity{PQCPublicKey: key44.public}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var identity types.QuantumIdentity
	decode(t, w, &identity)
	assert.Equal(t, owner.key, identity.Owner)
	assert.Equal(t, uint16(1), identity.KeyVersion)
	assert.Equal(t, types.DefaultThreshold, identity.ThresholdAmount)

	w = s.do(t, http.MethodPost, "/api/v1/identities", &types.InputRegisterIdentity{PQCPublicKey: key44.public}, owner)
	assert.Equal(t, http.StatusConflict, w.Code)
	var apiErr ApiError
	decode(t, w, &apiErr)
	assert.Equal(t, "IdentityExists", apiErr.Error)

	w = s.do(t, http.MethodGet, "/api/v1/identities/"+owner.key.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	msg := []byte("hello quantum world")
	w = s.do(t, http.MethodPost, "/api/v1/identities/"+owner.key.String()+"/verify",
		&types.InputVerifySignature{Message: msg, Signature: key44.sign(msg)}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var verification types.OutputSignatureVerification
	decode(t, w, &verification)
	assert.True(t, verification.Valid)
	assert.Len(t, s.sink.ByKind(types.EventSignatureVerified), 1)

	// an empty signature is simply not valid
	w = s.do(t, http.MethodPost, "/api/v1/identities/"+owner.key.String()+"/verify",
		&types.InputVerifySignature{Message: msg}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &verification)
	assert.False(t, verification.Valid)

	// rotate to ML-DSA-65, authorized by the current key
	key65 := newMLDSAKey(t, 65)
	rotateMsg := []byte("rotate to version 2")
	w = s.do(t, http.MethodPost, "/api/v1/identities/rotate", &types.InputRotateKey{
		NewPQCPublicKey:    key65.public,
		OldKeySignature:    key44.sign(rotateMsg),
		SignedMessage:      rotateMsg,
		ExpectedKeyVersion: 1,
	}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &identity)
	assert.Equal(t, uint16(2), identity.KeyVersion)
	assert.Equal(t, key65.public, identity.PQCPublicKey)

	// replaying the same authorization is stale
	w = s.do(t, http.MethodPost, "/api/v1/identities/rotate", &types.InputRotateKey{
		NewPQCPublicKey:    key65.public,
		OldKeySignature:    key44.sign(rotateMsg),
		SignedMessage:      rotateMsg,
		ExpectedKeyVersion: 1,
	}, owner)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/identities/threshold", &types.InputUpdateThreshold{ThresholdAmount: 0}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/v1/identities/threshold", &types.InputUpdateThreshold{ThresholdAmount: 5_000}, owner)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &identity)
	assert.Equal(t, uint64(5_000), identity.ThresholdAmount)

	w = s.do(t, http.MethodPost, "/api/v1/identities/freeze", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &identity)
	assert.True(t, identity.IsFrozen)

	w = s.do(t, http.MethodPost, "/api/v1/identities/"+owner.key.String()+"/verify",
		&types.InputVerifySignature{Message: msg, Signature: key65.sign(msg)}, nil)
	assert.Equal(t, http.StatusLocked, w.Code)
	decode(t, w, &apiErr)
	assert.Equal(t, "IdentityFrozen", apiErr.Error)

	w = s.do(t, http.MethodDelete, "/api/v1/identities", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/identities/"+owner.key.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterIdentityValidation(t *testing.T) {
	s := newTestServer(t)
	owner := newCaller(t)

	w := s.do(t, http.MethodPost, "/api/v1/identities", &types.InputRegisterIdentity{PQCPublicKey: make([]byte, 100)}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr ApiError
	decode(t, w, &apiErr)
	assert.Equal(t, "InvalidKeyLength", apiErr.Error)

	w = s.do(t, http.MethodPost, "/api/v1/identities", map[string]interface{}{}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &apiErr)
	assert.Equal(t, "InvalidKeyLength", apiErr.Error)

	w = s.do(t, http.MethodPost, "/api/v1/identities", &types.InputRegisterIdentity{PQCPublicKey: make([]byte, types.MLDSA44PublicKeySize)}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/identities/not-a-key", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferCheckVerdicts(t *testing.T) {
	s := newTestServer(t)
	authority := newCaller(t)
	sender := newCaller(t)
	asset := newCaller(t).key
	key44 := newMLDSAKey(t, 44)

	threshold := uint64(100)
	w := s.do(t, http.MethodPost, "/api/v1/identities", &types.InputRegisterIdentity{PQCPublicKey: key44.public, ThresholdAmount: &threshold}, sender)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	checkPath := "/api/v1/hooks/" + asset.String() + "/check"
	w = s.do(t, http.MethodPost, checkPath, &types.InputTransferCheck{Sender: sender.key.String(), Amount: 150}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/hooks", &types.InputInitializeHook{Asset: asset.String(), EnforcementMode: types.HardEnforce}, authority)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, checkPath, &types.InputTransferCheck{Sender: sender.key.String(), Amount: 150}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	var verdict map[string]interface{}
	decode(t, w, &verdict)
	assert.Equal(t, "BLOCK", verdict["verdict"])
	assert.Equal(t, "QuantumSignatureRequired", verdict["error"])

	w = s.do(t, http.MethodPost, checkPath, &types.InputTransferCheck{Sender: sender.key.String(), Amount: 50}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &verdict)
	assert.Equal(t, "ALLOW", verdict["verdict"])

	// second phase: the owner authorizes this exact transfer with the PQC key
	authz := types.TransferAuthorizationMessage(asset, sender.key, 150, 1, 0)
	w = s.do(t, http.MethodPost, "/api/v1/hooks/"+asset.String()+"/verified-check", &types.InputVerifiedTransferCheck{
		InputTransferCheck: types.InputTransferCheck{Sender: sender.key.String(), Amount: 150},
		Signature:          key44.sign(authz),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &verdict)
	assert.Equal(t, "ALLOW", verdict["verdict"])
	assert.Equal(t, true, verdict["signatureValid"])

	// the authorization was spent by the first transfer
	w = s.do(t, http.MethodPost, "/api/v1/hooks/"+asset.String()+"/verified-check", &types.InputVerifiedTransferCheck{
		InputTransferCheck: types.InputTransferCheck{Sender: sender.key.String(), Amount: 150},
		Signature:          key44.sign(authz),
	}, nil)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	verdict = map[string]interface{}{}
	decode(t, w, &verdict)
	assert.Equal(t, "BLOCK", verdict["verdict"])
	assert.Equal(t, "QuantumSignatureRequired", verdict["error"])

	w = s.do(t, http.MethodGet, "/api/v1/hooks/"+asset.String()+"/statistics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats types.OutputHookStatistics
	decode(t, w, &stats)
	assert.Equal(t, uint64(4), stats.TotalTransfersChecked)
	assert.Equal(t, uint64(3), stats.HighValueTransfersDetected)
	assert.Equal(t, "HardEnforce", stats.EnforcementMode)
}

func TestUpdateEnforcementModeAuthority(t *testing.T) {
	s := newTestServer(t)
	authority := newCaller(t)
	intruder := newCaller(t)
	asset := newCaller(t).key

	w := s.do(t, http.MethodPost, "/api/v1/hooks", &types.InputInitializeHook{Asset: asset.String(), EnforcementMode: types.Disabled}, authority)
	require.Equal(t, http.StatusCreated, w.Code)

	modePath := "/api/v1/hooks/" + asset.String() + "/mode"
	w = s.do(t, http.MethodPut, modePath, map[string]string{"enforcementMode": "SoftEnforce"}, intruder)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, modePath, map[string]string{"enforcementMode": "Strict"}, authority)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, modePath, map[string]string{"enforcementMode": "SoftEnforce"}, authority)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.sink.ByKind(types.EventEnforcementModeUpdated), 1)
}

func TestStatusFromError(t *testing.T) {
	cases := map[error]int{
		types.ErrInvalidKeyLength:         http.StatusBadRequest,
		types.ErrInvalidThreshold:         http.StatusBadRequest,
		types.ErrInvalidQuantumSignature:  http.StatusUnauthorized,
		types.ErrUnauthorized:             http.StatusForbidden,
		types.ErrIdentityFrozen:           http.StatusLocked,
		types.ErrHookNotInitialized:       http.StatusNotFound,
		types.ErrSequenceMismatch:         http.StatusConflict,
		types.ErrConflict:                 http.StatusConflict,
		types.ErrInvalidIdentityData:      http.StatusUnprocessableEntity,
		types.ErrInternal:                 http.StatusInternalServerError,
		types.ErrQuantumSignatureRequired: http.StatusForbidden,
	}
	for err, code := range cases {
		assert.Equal(t, code, StatusFromError(err), err.Error())
	}
}
