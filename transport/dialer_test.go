package transport

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"httpwire/header"
	"httpwire/route"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNetDialerDirect(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)

		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		br := bufio.NewReader(c)
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == "ping" {
			_, _ = c.Write([]byte("pong\n"))
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	rt := route.Route{Scheme: "http", Host: "127.0.0.1", Port: uint16(addr.Port)}

	d := NewNetDialer(clock.New(), NetDialerOptions{ConnectTimeout: 5 * time.Second})

	conn, err := d.Dial(context.Background(), rt)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, rt, conn.Route())

	_, err = conn.Writer().WriteString("ping\n")
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	reply, err := conn.Reader().ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "pong\n", reply)

	<-done
}

func TestTunnel(t *testing.T) {
	testcases := []struct {
		desc    string
		reply   string
		wantErr bool
	}{
		{
			desc:  "proxy accepts",
			reply: "HTTP/1.1 200 Connection Established\r\n\r\n",
		},
		{
			desc:    "proxy refuses",
			reply:   "HTTP/1.1 403 Forbidden\r\n\r\n",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			got := make(chan []string, 1)
			go func() {
				br := bufio.NewReader(server)

				var lines []string
				for {
					line, err := br.ReadString('\n')
					if err != nil {
						break
					}
					if line == "\r\n" {
						break
					}
					lines = append(lines, strings.TrimRight(line, "\r\n"))
				}
				got <- lines

				_, _ = server.Write([]byte(tc.reply))
			}()

			auth := header.New()
			auth.Set("Proxy-Authorization", "Basic dXNlcjpwYXNz")

			d := NewNetDialer(clock.NewMock(), NetDialerOptions{ConnectHeader: auth})
			rt := route.Route{
				Scheme: "https", Host: "origin.example", Port: 443,
				Proxy:  route.Proxy{Kind: route.ProxyHTTP, Host: "proxy.local", Port: 3128},
				Tunnel: true,
			}

			err := d.tunnel(context.Background(), client, rt)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			lines := <-got
			require.NotEmpty(t, lines)
			assert.Equal(t, "CONNECT origin.example:443 HTTP/1.1", lines[0])
			assert.Contains(t, lines, "Proxy-Authorization: Basic dXNlcjpwYXNz")
			assert.Contains(t, lines, "Host: origin.example:443")
		})
	}
}
