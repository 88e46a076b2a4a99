package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ferrepos/internal/config"
	"ferrepos/internal/dto"
	"ferrepos/internal/handler"
	"ferrepos/internal/middleware"
	"ferrepos/internal/model"
	"ferrepos/internal/repository"
	"ferrepos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ── In-memory UsuarioRepository ──────────────────────────────────────────────

type memUsuarioRepo struct {
	porID map[uuid.UUID]*model.Usuario
}

func newMemUsuarioRepo() *memUsuarioRepo {
	return &memUsuarioRepo{porID: make(map[uuid.UUID]*model.Usuario)}
}

func (r *memUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.porID[u.ID] = u
	return nil
}

func (r *memUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	for _, u := range r.porID {
		if u.Username == username && u.Activo {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *memUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, ok := r.porID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (r *memUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	var out []model.Usuario
	for _, u := range r.porID {
		if u.Activo {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUsuarioRepo) ListAll(_ context.Context) ([]model.Usuario, error) {
	out := make([]model.Usuario, 0, len(r.porID))
	for _, u := range r.porID {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	if _, ok := r.porID[u.ID]; !ok {
		return errors.New("not found")
	}
	r.porID[u.ID] = u
	return nil
}

func (r *memUsuarioRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	u, ok := r.porID[id]
	if !ok {
		return errors.New("not found")
	}
	u.Activo = false
	return nil
}

func (r *memUsuarioRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	u, ok := r.porID[id]
	if !ok {
		return errors.New("not found")
	}
	u.Activo = true
	return nil
}

var _ repository.UsuarioRepository = (*memUsuarioRepo)(nil)

// ── Fixture ──────────────────────────────────────────────────────────────────

const claveJWT = "clave_de_prueba_con_32_caracteres!"

type authFixture struct {
	repo *memUsuarioRepo
	svc  service.AuthService
}

func newAuthFixture() *authFixture {
	repo := newMemUsuarioRepo()
	cfg := &config.Config{
		JWTSecret:          claveJWT,
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
	}
	return &authFixture{repo: repo, svc: service.NewAuthService(repo, cfg)}
}

func (f *authFixture) altaUsuario(t *testing.T, username, password, rol string) *model.Usuario {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	u := &model.Usuario{
		Username:     username,
		Nombre:       "Usuario de prueba",
		PasswordHash: string(hash),
		Rol:          rol,
		Activo:       true,
	}
	require.NoError(t, f.repo.Create(context.Background(), u))
	return u
}

func (f *authFixture) postLogin(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", handler.NewAuthHandler(f.svc).Login)

	body, err := json.Marshal(dto.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func firmarToken(t *testing.T, userID, rol string, vence time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "dmartinez",
		"rol":      rol,
		"exp":      time.Now().Add(vence).Unix(),
		"iat":      time.Now().Unix(),
	})
	firmado, err := tok.SignedString([]byte(claveJWT))
	require.NoError(t, err)
	return firmado
}

// getConToken arma un router con JWTAuth y pega contra la ruta indicada.
func getConToken(path, token string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.JWTAuth(claveJWT))
	r.GET("/perfil", func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "rol": claims.Rol})
	})
	r.GET("/solo-admin", middleware.RequireRole("administrador"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── Login ────────────────────────────────────────────────────────────────────

func TestLoginEntregaAmbosTokens(t *testing.T) {
	f := newAuthFixture()
	f.altaUsuario(t, "dmartinez", "ferreteria2024", "administrador")

	w := f.postLogin(t, "dmartinez", "ferreteria2024")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "administrador", resp.User.Rol)
}

func TestLoginPasswordIncorrecta(t *testing.T) {
	f := newAuthFixture()
	f.altaUsuario(t, "lgomez", "laCorrecta1", "cajero")

	w := f.postLogin(t, "lgomez", "otraCosa123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUsuarioInexistente(t *testing.T) {
	f := newAuthFixture()
	w := f.postLogin(t, "fantasma", "loquesea123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginPasswordCorta(t *testing.T) {
	// La validación corta antes de llegar al servicio: 422, no 401.
	f := newAuthFixture()
	w := f.postLogin(t, "x", "12")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// ── Refresh ──────────────────────────────────────────────────────────────────

func TestRefreshEmiteNuevoAccessToken(t *testing.T) {
	f := newAuthFixture()
	u := f.altaUsuario(t, "rsuarez", "turno2024", "supervisor")

	w := f.postLogin(t, "rsuarez", "turno2024")
	require.Equal(t, http.StatusOK, w.Code)
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	resp, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, u.Username, resp.User.Username)
}

func TestRefreshTokenIlegible(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Refresh(context.Background(), "ni.siquiera.jwt")
	assert.Error(t, err)
}

func TestRefreshTokenVencido(t *testing.T) {
	f := newAuthFixture()
	u := f.altaUsuario(t, "jlopez", "clave12345", "cajero")

	vencido := firmarToken(t, u.ID.String(), "cajero", -time.Minute)
	_, err := f.svc.Refresh(context.Background(), vencido)
	assert.Error(t, err)
}

func TestRefreshUsuarioDesactivado(t *testing.T) {
	// Un token todavía válido deja de servir si el usuario fue dado de baja.
	f := newAuthFixture()
	u := f.altaUsuario(t, "saliente", "ultimodia1", "cajero")
	tok := firmarToken(t, u.ID.String(), "cajero", time.Hour)

	require.NoError(t, f.svc.DesactivarUsuario(context.Background(), u.ID))

	_, err := f.svc.Refresh(context.Background(), tok)
	assert.ErrorIs(t, err, service.ErrUsuarioNoEncontrado)
}

// ── Middleware JWT y roles ───────────────────────────────────────────────────

func TestMiddlewareJWT(t *testing.T) {
	casos := []struct {
		nombre string
		path   string
		token  string
		status int
	}{
		{"sin token", "/perfil", "", http.StatusUnauthorized},
		{"token válido", "/perfil", firmarToken(t, uuid.NewString(), "cajero", time.Hour), http.StatusOK},
		{"token vencido", "/perfil", firmarToken(t, uuid.NewString(), "cajero", -time.Minute), http.StatusUnauthorized},
		{"rol insuficiente", "/solo-admin", firmarToken(t, uuid.NewString(), "cajero", time.Hour), http.StatusForbidden},
		{"rol correcto", "/solo-admin", firmarToken(t, uuid.NewString(), "administrador", time.Hour), http.StatusOK},
	}

	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			w := getConToken(tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

// ── Administración de usuarios ───────────────────────────────────────────────

func TestCrearUsuarioHasheaElPassword(t *testing.T) {
	f := newAuthFixture()

	resp, err := f.svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "nuevocajero",
		Nombre:   "Nuevo Cajero",
		Password: "clave-segura-1",
		Rol:      "cajero",
	})
	require.NoError(t, err)
	assert.Equal(t, "cajero", resp.Rol)
	assert.NotEmpty(t, resp.ID)

	guardado, err := f.repo.FindByUsername(context.Background(), "nuevocajero")
	require.NoError(t, err)
	assert.NotEqual(t, "clave-segura-1", guardado.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(guardado.PasswordHash), []byte("clave-segura-1")))
}

func TestListarUsuariosFiltraInactivos(t *testing.T) {
	f := newAuthFixture()
	f.altaUsuario(t, "activo1", "clave1234", "cajero")
	baja := f.altaUsuario(t, "debaja", "clave1234", "supervisor")
	require.NoError(t, f.svc.DesactivarUsuario(context.Background(), baja.ID))

	activos, err := f.svc.ListarUsuarios(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, activos, 1)

	todos, err := f.svc.ListarUsuarios(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, todos, 2)
}

func TestBajaYReactivacionDeUsuario(t *testing.T) {
	f := newAuthFixture()
	u := f.altaUsuario(t, "temporal", "clave1234", "cajero")

	require.NoError(t, f.svc.DesactivarUsuario(context.Background(), u.ID))
	_, err := f.repo.FindByUsername(context.Background(), "temporal")
	assert.Error(t, err, "un usuario dado de baja no debe poder loguearse")

	require.NoError(t, f.svc.ReactivarUsuario(context.Background(), u.ID))
	_, err = f.repo.FindByUsername(context.Background(), "temporal")
	assert.NoError(t, err)
}
