package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := GrantRequest{
		Email:       "  alice@example.com  ",
		Description: " Conference credit ",
		TenantID:    " basic",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "Conference credit", req.Description)
	assert.Equal(t, "basic", req.TenantID)
}

func TestSanitizeStruct_KeepsTextAsSubmitted(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" Tom & Jerry ", "Tom & Jerry"},
		{"voucher <b>bold</b>", "voucher <b>bold</b>"},
		{`"quoted" 'single'`, `"quoted" 'single'`},
	}
	for _, tt := range tests {
		req := RedeemRequest{Amount: "10", Description: tt.in}
		SanitizeStruct(&req)
		assert.Equal(t, tt.want, req.Description)
	}
}

func TestSanitizeStruct_LeavesMetadataUntouched(t *testing.T) {
	req := RedeemRequest{
		Amount:   " 15 ",
		Metadata: map[string]any{"note": " <b>keep</b> "},
	}
	SanitizeStruct(&req)

	assert.Equal(t, Amount("15"), req.Amount)
	assert.Equal(t, " <b>keep</b> ", req.Metadata["note"])
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	s := "  hello  "
	req := struct{ Note *string }{Note: &s}
	SanitizeStruct(&req)

	assert.Equal(t, "hello", *req.Note)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := struct{ Note *string }{}
	SanitizeStruct(&req)
	assert.Nil(t, req.Note)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := RedeemRequest{Description: "  x  "}
	SanitizeStruct(req)
	assert.Equal(t, "  x  ", req.Description)
}

// --- Amount tests ---

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Amount
		wantErr bool
	}{
		{"number", `{"amount": 1500}`, "1500", false},
		{"decimal number", `{"amount": 12.5}`, "12.5", false},
		{"negative number", `{"amount": -50}`, "-50", false},
		{"string", `{"amount": "1,500.00"}`, "1,500.00", false},
		{"null", `{"amount": null}`, "", false},
		{"missing", `{}`, "", false},
		{"bool", `{"amount": true}`, "", true},
		{"object", `{"amount": {"v": 1}}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req RedeemRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Amount)
		})
	}
}

// --- Validator tests ---

func TestValidation_WalletRef(t *testing.T) {
	tests := []struct {
		ref   string
		valid bool
	}{
		{"", true},
		{"order-17", true},
		{"order:2024/0017", true},
		{"INV_1.2#3", true},
		{"has space", false},
		{"<script>", false},
		{strings.Repeat("a", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(RedeemRequest{Reference: tt.ref})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidation_GrantRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   GrantRequest
		valid bool
	}{
		{"email target", GrantRequest{Email: "a@example.com"}, true},
		{"uid target", GrantRequest{UID: "user_42"}, true},
		{"bad email", GrantRequest{Email: "not-an-email"}, false},
		{"bad uid", GrantRequest{UID: "a b"}, false},
		{"bad tenant", GrantRequest{Email: "a@example.com", TenantID: "ten ant"}, false},
		{"long description", GrantRequest{Email: "a@example.com", Description: strings.Repeat("d", 501)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGrantRequest_Target(t *testing.T) {
	req := GrantRequest{Email: "a@example.com", UID: "42", Reference: "r-1", Description: "d"}

	assert.Equal(t, "a@example.com", req.Target().Email)
	assert.Equal(t, "42", req.Target().UserID)
	assert.Equal(t, "r-1", req.Options().Reference)
}
