package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-auth/internal/biometric"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/database/mock"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/kozaktomas/face-auth/internal/fingerprint"
	"github.com/rs/zerolog"
)

// imageExtractor returns a fixed descriptor per image content.
type imageExtractor map[string]database.Descriptor

func (e imageExtractor) Extract(ctx context.Context, image []byte) (database.Descriptor, error) {
	if d, ok := e[string(image)]; ok {
		return d, nil
	}
	if string(image) == "two faces" {
		return nil, &fingerprint.ExtractionError{Reason: fingerprint.ReasonMultipleFaces, Faces: 2}
	}
	return nil, &fingerprint.ExtractionError{Reason: fingerprint.ReasonNoFace}
}

func newTestHandler(store *mock.Store) *BiometricHandler {
	extractor := imageExtractor{
		"ana":      {0.1, 0.2, 0.3},
		"ana-2":    {0.12, 0.21, 0.3},
		"stranger": {3, 3, 3},
	}
	svc := biometric.NewService(store, extractor, facematch.NewMatcher(0.6, zerolog.Nop()), zerolog.Nop())
	return NewBiometricHandler(svc, 1<<20, zerolog.Nop())
}

// stubFlows returns fixed errors.
type stubFlows struct {
	err error
}

func (s stubFlows) Register(ctx context.Context, in biometric.RegisterInput) (*biometric.Registration, error) {
	return nil, s.err
}

func (s stubFlows) Authenticate(ctx context.Context, image []byte) (facematch.Result, error) {
	return nil, s.err
}

func TestRegister_Success(t *testing.T) {
	store := mock.NewStore()
	handler := newTestHandler(store)

	req := multipartRequest(t, "/registrar", map[string]string{"nome": "Ana", "nivel": "2"}, []byte("ana"))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var body map[string]any
	parseJSONResponse(t, recorder, &body)

	if body["status"] != "sucesso" {
		t.Errorf("expected status 'sucesso', got %v", body["status"])
	}
	if body["id"] != float64(1) {
		t.Errorf("expected id 1, got %v", body["id"])
	}
	if body["nome"] != "Ana" {
		t.Errorf("expected nome 'Ana', got %v", body["nome"])
	}
	if body["nivel_acesso"] != float64(2) {
		t.Errorf("expected nivel_acesso 2, got %v", body["nivel_acesso"])
	}
	if body["mensagem"] != "Usuário registrado com sucesso." {
		t.Errorf("unexpected mensagem %v", body["mensagem"])
	}
	if n := len(store.Users()); n != 1 {
		t.Errorf("expected 1 stored user, got %d", n)
	}
}

func TestRegister_TwoFaces(t *testing.T) {
	store := mock.NewStore()
	handler := newTestHandler(store)

	req := multipartRequest(t, "/registrar", map[string]string{"nome": "Grupo", "nivel": "1"}, []byte("two faces"))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	expected := `{"status":"falha","mensagem":"Não foi possível processar a imagem. Verifique se há apenas um rosto nela."}` + "\n"
	if recorder.Body.String() != expected {
		t.Errorf("expected %s, got %s", expected, recorder.Body.String())
	}
	if n := len(store.Users()); n != 0 {
		t.Errorf("expected no stored user, got %d", n)
	}
}

func TestRegister_EmptyFile(t *testing.T) {
	store := mock.NewStore()
	handler := newTestHandler(store)

	req := multipartRequest(t, "/registrar", map[string]string{"nome": "Ana", "nivel": "2"}, []byte{})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "O arquivo enviado está vazio. Por favor, anexe uma imagem válida.")
	if store.SaveCalls != 0 {
		t.Error("expected nothing saved")
	}
}

func TestRegister_FormValidation(t *testing.T) {
	tests := []struct {
		name      string
		fields    map[string]string
		file      []byte
		wantError string
	}{
		{"missing nome", map[string]string{"nivel": "1"}, []byte("ana"), "nome: campo obrigatório"},
		{"missing nivel", map[string]string{"nome": "Ana"}, []byte("ana"), "nivel: campo obrigatório"},
		{"non integer nivel", map[string]string{"nome": "Ana", "nivel": "alto"}, []byte("ana"), "nivel: deve ser um número inteiro"},
		{"nivel above int32", map[string]string{"nome": "Ana", "nivel": "3000000000"}, []byte("ana"), "nivel: deve ser um número inteiro"},
		{"nivel below int32", map[string]string{"nome": "Ana", "nivel": "-2147483649"}, []byte("ana"), "nivel: deve ser um número inteiro"},
		{"missing file", map[string]string{"nome": "Ana", "nivel": "1"}, nil, "file: campo obrigatório"},
		{"blank nome", map[string]string{"nome": "   ", "nivel": "1"}, []byte("ana"), "nome: campo obrigatório"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.NewStore()
			handler := newTestHandler(store)

			req := multipartRequest(t, "/registrar", tt.fields, tt.file)
			recorder := httptest.NewRecorder()
			handler.Register(recorder, req)

			assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
			assertJSONError(t, recorder, tt.wantError)
			if store.SaveCalls != 0 {
				t.Error("expected nothing saved")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 7 ", 7, false},
		{"-1", -1, false},
		{"2147483647", 2147483647, false},
		{"2147483648", 0, true},
		{"3.5", 0, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q): expected error %v, got %v", tt.value, tt.wantErr, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q): expected %d, got %d", tt.value, tt.want, got)
		}
	}
}

func TestRegister_NotMultipart(t *testing.T) {
	handler := newTestHandler(mock.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/registrar", strings.NewReader(`{"nome":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestRegister_TooLarge(t *testing.T) {
	store := mock.NewStore()
	extractor := imageExtractor{}
	svc := biometric.NewService(store, extractor, facematch.NewMatcher(0.6, zerolog.Nop()), zerolog.Nop())
	handler := NewBiometricHandler(svc, 1024, zerolog.Nop())

	req := multipartRequest(t, "/registrar", map[string]string{"nome": "Ana", "nivel": "1"}, bytes.Repeat([]byte("x"), 4096))
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
}

func TestAuthenticate_Success(t *testing.T) {
	store := mock.NewStore()
	store.AddUser("Ana", 2, database.Descriptor{0.1, 0.2, 0.3})
	handler := newTestHandler(store)

	req := multipartRequest(t, "/autenticar", nil, []byte("ana-2"))
	recorder := httptest.NewRecorder()
	handler.Authenticate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	expected := `{"status":"sucesso","nome":"Ana","id":1,"nivel_acesso":2,"mensagem":"Usuário autenticado com sucesso."}` + "\n"
	if recorder.Body.String() != expected {
		t.Errorf("expected %s, got %s", expected, recorder.Body.String())
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		enrolled bool
		image    string
		message  string
	}{
		{"no users", false, "ana", "Nenhum usuário cadastrado no sistema para comparar."},
		{"no face", true, "landscape", "Não foi possível encontrar um rosto único na imagem."},
		{"not recognized", true, "stranger", "Usuário não reconhecido."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.NewStore()
			if tt.enrolled {
				store.AddUser("Ana", 2, database.Descriptor{0.1, 0.2, 0.3})
			}
			handler := newTestHandler(store)

			req := multipartRequest(t, "/autenticar", nil, []byte(tt.image))
			recorder := httptest.NewRecorder()
			handler.Authenticate(recorder, req)

			assertStatusCode(t, recorder, http.StatusOK)
			expected := fmt.Sprintf(`{"status":"erro","nome":null,"id":null,"mensagem":%q}`, tt.message) + "\n"
			if recorder.Body.String() != expected {
				t.Errorf("expected %s, got %s", expected, recorder.Body.String())
			}
		})
	}
}

func TestAuthenticate_EmptyFile(t *testing.T) {
	handler := newTestHandler(mock.NewStore())

	req := multipartRequest(t, "/autenticar", nil, []byte{})
	recorder := httptest.NewRecorder()
	handler.Authenticate(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "O arquivo enviado está vazio. Por favor, anexe uma imagem válida.")
}

func TestFlowErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"storage", database.NewStorageError("load", errors.New("disk I/O error")), http.StatusInternalServerError},
		{"embedding down", fmt.Errorf("%w: dial tcp", fingerprint.ErrEmbeddingUnavailable), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewBiometricHandler(stubFlows{err: tt.err}, 0, zerolog.Nop())

			for _, endpoint := range []struct {
				path string
				fn   http.HandlerFunc
			}{
				{"/registrar", handler.Register},
				{"/autenticar", handler.Authenticate},
			} {
				req := multipartRequest(t, endpoint.path, map[string]string{"nome": "Ana", "nivel": "1"}, []byte("ana"))
				recorder := httptest.NewRecorder()
				endpoint.fn(recorder, req)
				assertStatusCode(t, recorder, tt.wantStatus)
				if strings.Contains(recorder.Body.String(), "disk I/O") {
					t.Errorf("%s: internal error details leaked: %s", endpoint.path, recorder.Body.String())
				}
			}
		})
	}
}
