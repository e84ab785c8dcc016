package client

import (
	"strings"
	"testing"

	"httpwire/header"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		desc string
		req  Request

		wantMethod string
		wantErr    error
	}{
		{
			desc:       "empty method becomes GET",
			req:        Request{URL: mustParse(t, "http://origin.example/")},
			wantMethod: "GET",
		},
		{
			desc: "GET with body promoted to POST",
			req: Request{
				URL:  mustParse(t, "http://origin.example/"),
				Body: strings.NewReader("payload"),
			},
			wantMethod: "POST",
		},
		{
			desc: "explicit method kept",
			req: Request{
				Method: "DELETE",
				URL:    mustParse(t, "http://origin.example/thing"),
			},
			wantMethod: "DELETE",
		},
		{
			desc: "connect is not issuable",
			req: Request{
				Method: "CONNECT",
				URL:    mustParse(t, "http://origin.example/"),
			},
			wantErr: ErrUnsupportedMethod,
		},
		{
			desc: "unknown method rejected",
			req: Request{
				Method: "BREW",
				URL:    mustParse(t, "http://origin.example/"),
			},
			wantErr: ErrUnsupportedMethod,
		},
		{
			desc:    "missing url",
			req:     Request{Method: "GET"},
			wantErr: errMissingURL,
		},
		{
			desc: "non-http scheme rejected",
			req: Request{
				Method: "GET",
				URL:    mustParse(t, "ftp://files.example/"),
			},
			wantErr: ErrUnsupportedScheme,
		},
		{
			desc: "url without host rejected",
			req: Request{
				Method: "GET",
				URL:    mustParse(t, "http:///nohost"),
			},
			wantErr: errMissingHost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			norm, err := normalize(&tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantMethod, norm.Method)
			require.NotNil(t, norm.Header)
		})
	}
}

func TestNormalizeClonesHeader(t *testing.T) {
	h := header.New()
	h.Set("X-Original", "yes")

	norm, err := normalize(&Request{
		Method: "GET",
		URL:    mustParse(t, "http://origin.example/"),
		Header: h,
	})
	require.NoError(t, err)

	norm.Header.Set("X-Added", "later")

	_, ok := h.Get("X-Added")
	assert.False(t, ok, "the caller's header must stay untouched")
}
