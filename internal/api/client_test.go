package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"skillwallet/internal/platform/logger"
)

// recordingServer captures the last request so tests can assert on headers
// and bodies without a full backend.
type recordingServer struct {
	*httptest.Server
	lastMethod string
	lastPath   string
	lastQuery  string
	lastAuth   string
	lastBody   []byte
}

func newRecordingServer(t *testing.T, status int, response string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.lastMethod = r.Method
		rs.lastPath = r.URL.Path
		rs.lastQuery = r.URL.RawQuery
		rs.lastAuth = r.Header.Get("Authorization")
		rs.lastBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func TestClient_rejects_invalid_phone_without_network(t *testing.T) {
	// Deliberately unroutable base URL: validation must short-circuit first.
	c := New("http://127.0.0.1:0/api/v1", logger.Discard())

	for _, phone := range []string{"", "abc", "123", "+123456789012345"} {
		if _, err := c.SendOTP(context.Background(), phone); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("SendOTP(%q): got %v, want ErrInvalidPhone", phone, err)
		}
		if _, err := c.VerifyOTP(context.Background(), phone, "123456"); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("VerifyOTP(%q): got %v, want ErrInvalidPhone", phone, err)
		}
		if _, err := c.InitializeWallet(context.Background(), phone); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("InitializeWallet(%q): got %v, want ErrInvalidPhone", phone, err)
		}
	}
}

func TestClient_send_otp(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{"message":"OTP sent.","status":"pending"}`)
	c := New(srv.URL+"/api/v1", logger.Discard())

	status, err := c.SendOTP(context.Background(), "+919876543210")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if status.Status != "pending" {
		t.Errorf("Status = %q", status.Status)
	}
	if srv.lastPath != "/api/v1/auth/otp/send" {
		t.Errorf("path = %q", srv.lastPath)
	}
	var body map[string]string
	json.Unmarshal(srv.lastBody, &body)
	if body["phone_number"] != "+919876543210" {
		t.Errorf("body = %s", srv.lastBody)
	}
}

func TestClient_verify_otp_and_bearer(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `{"access_token":"tok-123","token_type":"bearer"}`)
	c := New(srv.URL+"/api/v1", logger.Discard())

	tok, err := c.VerifyOTP(context.Background(), "9876543210", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if tok.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
	// Before SetToken, no Authorization header is attached.
	if srv.lastAuth != "" {
		t.Errorf("Authorization before SetToken = %q", srv.lastAuth)
	}

	c.SetToken(tok.AccessToken)
	if _, err := c.GetProfile(context.Background(), 5); err != nil {
		// The recorded response is a token payload; decoding into Profile
		// with unrelated fields still succeeds, so any error is a failure.
		t.Fatalf("GetProfile: %v", err)
	}
	if srv.lastAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", srv.lastAuth)
	}
	if srv.lastPath != "/api/v1/user/profile/5" {
		t.Errorf("path = %q", srv.lastPath)
	}
}

func TestClient_error_detail(t *testing.T) {
	srv := newRecordingServer(t, http.StatusNotFound, `{"detail":"User not found."}`)
	c := New(srv.URL+"/api/v1", logger.Discard())

	_, err := c.GetProfile(context.Background(), 99)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Detail != "User not found." {
		t.Errorf("Error = %+v", apiErr)
	}
	if !apiErr.IsClientError() {
		t.Error("404 should classify as client error")
	}
}

func TestClient_error_without_detail(t *testing.T) {
	srv := newRecordingServer(t, http.StatusBadGateway, "upstream exploded")
	c := New(srv.URL+"/api/v1", logger.Discard())

	_, err := c.GetSkillScore(context.Background(), 1)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.IsClientError() {
		t.Error("502 should not classify as client error")
	}
	if apiErr.Detail != "" {
		t.Errorf("Detail = %q, want empty for non-JSON body", apiErr.Detail)
	}
}

func TestClient_get_proofs_scope(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, `[{"skill":"masonry","grade_score":8}]`)
	c := New(srv.URL+"/api/v1", logger.Discard())

	proofs, err := c.GetProofs(context.Background(), 3, "all")
	if err != nil {
		t.Fatalf("GetProofs: %v", err)
	}
	if len(proofs) != 1 || proofs[0].Skill != "masonry" {
		t.Errorf("proofs = %+v", proofs)
	}
	if srv.lastQuery != "scope=all" {
		t.Errorf("query = %q", srv.lastQuery)
	}
}

func TestClient_submit_work(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK,
		`{"message":"Micro-Proof submitted successfully. Skill Wallet Token Minted!","skill_token":"SW-TKN-ab12cd34","skill_name":"masonry"}`)
	c := New(srv.URL+"/api/v1", logger.Discard())

	receipt, err := c.SubmitWork(context.Background(), 3, WorkSubmission{
		SkillName:    "masonry",
		ImageURL:     "3/work_evidence_x.jpg",
		AudioFileURL: "3/work_story_y.webm",
		LanguageCode: "hi",
	})
	if err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}
	if receipt.SkillToken != "SW-TKN-ab12cd34" {
		t.Errorf("SkillToken = %q", receipt.SkillToken)
	}
	if srv.lastPath != "/api/v1/work/submit/3" {
		t.Errorf("path = %q", srv.lastPath)
	}
}

func TestClient_upload_file(t *testing.T) {
	var gotFilename string
	var gotData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file_type") != "aadhaar" {
			t.Errorf("file_type = %q", r.URL.Query().Get("file_type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotData, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ok","file_path":"3/aadhaar_scan.jpg","user_id":3}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/v1", logger.Discard())
	resp, err := c.UploadFile(context.Background(), 3, "aadhaar", "scan.jpg", []byte("jpeg-data"))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if resp.FilePath != "3/aadhaar_scan.jpg" {
		t.Errorf("FilePath = %q", resp.FilePath)
	}
	if gotFilename != "scan.jpg" || string(gotData) != "jpeg-data" {
		t.Errorf("received %q (%q)", gotFilename, gotData)
	}
}

func TestClient_context_cancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL+"/api/v1", logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetProfile(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
