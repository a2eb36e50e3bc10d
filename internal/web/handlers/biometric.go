package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-auth/internal/biometric"
	"github.com/kozaktomas/face-auth/internal/constants"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/kozaktomas/face-auth/internal/fingerprint"
	"github.com/rs/zerolog"
)

// User-facing messages.
const (
	msgEmptyFile        = "O arquivo enviado está vazio. Por favor, anexe uma imagem válida."
	msgRegistered       = "Usuário registrado com sucesso."
	msgRegisterNoFace   = "Não foi possível processar a imagem. Verifique se há apenas um rosto nela."
	msgAuthenticated    = "Usuário autenticado com sucesso."
	msgNoUsers          = "Nenhum usuário cadastrado no sistema para comparar."
	msgAuthNoFace       = "Não foi possível encontrar um rosto único na imagem."
	msgNotRecognized    = "Usuário não reconhecido."
	msgStorageFailure   = "Erro interno ao acessar o cadastro de usuários."
	msgEmbeddingDown    = "Serviço de reconhecimento facial indisponível."
	msgInternalError    = "Erro interno."
	msgFileTooLarge     = "O arquivo enviado excede o tamanho máximo permitido."
	msgInvalidMultipart = "Requisição inválida: envie os dados como multipart/form-data."
	msgMissingFile      = "file: campo obrigatório"
)

const validationTagInteger = "integer"

// Flows is the biometric service used by the handler.
type Flows interface {
	Register(ctx context.Context, in biometric.RegisterInput) (*biometric.Registration, error)
	Authenticate(ctx context.Context, image []byte) (facematch.Result, error)
}

// registerForm holds the text fields of POST /registrar.
type registerForm struct {
	Name  string `form:"nome" validate:"required"`
	Level string `form:"nivel" validate:"required,integer"`
}

type registerSuccess struct {
	Status      string `json:"status"`
	ID          int64  `json:"id"`
	Name        string `json:"nome"`
	AccessLevel int    `json:"nivel_acesso"`
	Message     string `json:"mensagem"`
}

type registerFailure struct {
	Status  string `json:"status"`
	Message string `json:"mensagem"`
}

type authSuccess struct {
	Status      string `json:"status"`
	Name        string `json:"nome"`
	ID          int64  `json:"id"`
	AccessLevel int    `json:"nivel_acesso"`
	Message     string `json:"mensagem"`
}

// authFailure always carries null nome and id.
type authFailure struct {
	Status  string  `json:"status"`
	Name    *string `json:"nome"`
	ID      *int64  `json:"id"`
	Message string  `json:"mensagem"`
}

// BiometricHandler serves /registrar and /autenticar.
type BiometricHandler struct {
	flows         Flows
	maxUploadSize int64
	validate      *validator.Validate
	log           zerolog.Logger
}

// NewBiometricHandler creates a new biometric handler.
func NewBiometricHandler(flows Flows, maxUploadSize int64, log zerolog.Logger) *BiometricHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = constants.MaxUploadSize
	}
	return &BiometricHandler{
		flows:         flows,
		maxUploadSize: maxUploadSize,
		validate:      newFormValidator(),
		log:           log,
	}
}

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	_ = v.RegisterValidation(validationTagInteger, func(fl validator.FieldLevel) bool {
		_, err := parseLevel(fl.Field().String())
		return err == nil
	})
	return v
}

// parseLevel parses an access level. Levels are stored in 32-bit columns.
func parseLevel(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return int(n), err
}

// formErrorMessage renders validation errors as "field: problem" pairs.
func formErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+": campo obrigatório")
		case validationTagInteger:
			parts = append(parts, fe.Field()+": deve ser um número inteiro")
		default:
			parts = append(parts, fmt.Sprintf("%s: inválido (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// readUpload parses the multipart body and returns the uploaded image bytes.
// It writes the error response itself and returns ok=false on failure.
func (h *BiometricHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
			return nil, false
		}
		respondError(w, http.StatusUnprocessableEntity, msgInvalidMultipart)
		return nil, false
	}

	file, _, err := r.FormFile(constants.UploadFieldFile)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, msgMissingFile)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidMultipart)
		return nil, false
	}
	return data, true
}

// Register handles POST /registrar.
func (h *BiometricHandler) Register(w http.ResponseWriter, r *http.Request) {
	image, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	form := registerForm{
		Name:  r.FormValue("nome"),
		Level: strings.TrimSpace(r.FormValue("nivel")),
	}
	if err := h.validate.Struct(form); err != nil {
		respondError(w, http.StatusUnprocessableEntity, formErrorMessage(err))
		return
	}
	level, _ := parseLevel(form.Level)

	reg, err := h.flows.Register(r.Context(), biometric.RegisterInput{
		Name:  form.Name,
		Level: level,
		Image: image,
	})
	if err != nil {
		if errors.Is(err, fingerprint.ErrExtraction) {
			respondJSON(w, http.StatusOK, registerFailure{
				Status:  constants.StatusFailure,
				Message: msgRegisterNoFace,
			})
			return
		}
		h.respondFlowError(w, r, "register", err)
		return
	}

	h.log.Info().
		Int64("user_id", reg.Identity.ID).
		Str("name", sanitizeForLog(reg.Identity.DisplayName)).
		Msg("registration completed")
	respondJSON(w, http.StatusOK, registerSuccess{
		Status:      constants.StatusSuccess,
		ID:          reg.Identity.ID,
		Name:        reg.Identity.DisplayName,
		AccessLevel: reg.Identity.AccessLevel,
		Message:     msgRegistered,
	})
}

// Authenticate handles POST /autenticar.
func (h *BiometricHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	image, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.flows.Authenticate(r.Context(), image)
	switch {
	case errors.Is(err, biometric.ErrNoUsersEnrolled):
		respondJSON(w, http.StatusOK, authFailure{Status: constants.StatusError, Message: msgNoUsers})
		return
	case errors.Is(err, fingerprint.ErrExtraction):
		respondJSON(w, http.StatusOK, authFailure{Status: constants.StatusError, Message: msgAuthNoFace})
		return
	case err != nil:
		h.respondFlowError(w, r, "authenticate", err)
		return
	}

	m, ok := facematch.AsMatched(result)
	if !ok {
		respondJSON(w, http.StatusOK, authFailure{Status: constants.StatusError, Message: msgNotRecognized})
		return
	}
	respondJSON(w, http.StatusOK, authSuccess{
		Status:      constants.StatusSuccess,
		Name:        m.Identity.DisplayName,
		ID:          m.Identity.ID,
		AccessLevel: m.Identity.AccessLevel,
		Message:     msgAuthenticated,
	})
}

// respondFlowError maps errors shared by both flows to HTTP responses.
func (h *BiometricHandler) respondFlowError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, biometric.ErrEmptyImage):
		respondError(w, http.StatusBadRequest, msgEmptyFile)
	case errors.Is(err, biometric.ErrInvalidName):
		respondError(w, http.StatusUnprocessableEntity, "nome: campo obrigatório")
	case database.IsStorageError(err):
		h.log.Error().Err(err).Str("op", op).Msg("storage failure")
		respondError(w, http.StatusInternalServerError, msgStorageFailure)
	case errors.Is(err, fingerprint.ErrEmbeddingUnavailable):
		h.log.Error().Err(err).Str("op", op).Msg("embedding server failure")
		respondError(w, http.StatusBadGateway, msgEmbeddingDown)
	default:
		h.log.Error().Err(err).Str("op", op).Msg("unexpected error")
		respondError(w, http.StatusInternalServerError, msgInternalError)
	}
}
