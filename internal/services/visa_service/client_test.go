package visa_service

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
)

// fakeInstrumentServer - TCP-эмулятор SCPI-сокета прибора
func fakeInstrumentServer(t *testing.T, responses map[string]string) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					cmd := strings.TrimSpace(line)
					if resp, ok := responses[cmd]; ok {
						fmt.Fprintf(conn, "%s\n", resp)
					}
					// Команды без ответа молча проглатываются
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

func newTestClient(address string, timeout time.Duration) *Client {
	cfg := &config.AppConfig{
		Visa: config.VisaConfig{
			Address:      address,
			Timeout:      timeout,
			CommandDelay: 0,
		},
	}
	logger := logging.NewLogger(&logging.Config{Enabled: false, Level: "ERROR"}, "TEST")
	return NewClient(cfg, logger).(*Client)
}

func TestConnectIdentifiesInstrument(t *testing.T) {
	address := fakeInstrumentServer(t, map[string]string{
		"*IDN?": "Keysight Technologies,X100,MY12345678,A.02.16",
	})

	c := newTestClient(address, time.Second)
	require.NoError(t, c.Connect())
	defer c.Close()

	require.True(t, c.IsConnected())
	require.Equal(t, "Keysight Technologies,X100,MY12345678,A.02.16", c.Identity())
	require.Equal(t, "X100", c.Model(), "Модель - второе поле ответа *IDN?")
}

func TestQueryRoundTrip(t *testing.T) {
	address := fakeInstrumentServer(t, map[string]string{
		"*IDN?":      "Fake,X100,0,1.0",
		"FREQ:CENT?": "1000000",
	})

	c := newTestClient(address, time.Second)
	require.NoError(t, c.Connect())
	defer c.Close()

	resp, err := c.Query("FREQ:CENT?")
	require.NoError(t, err)
	require.Equal(t, "1000000", resp)
}

func TestQueryTimeoutOnSilentInstrument(t *testing.T) {
	// Прибор знает *IDN?, но молчит на все остальное
	address := fakeInstrumentServer(t, map[string]string{
		"*IDN?": "Fake,X100,0,1.0",
	})

	c := newTestClient(address, 100*time.Millisecond)
	require.NoError(t, c.Connect())
	defer c.Close()

	_, err := c.Query("FREQ:CENT?")
	require.Error(t, err)
	require.True(t, IsTimeout(err), "Молчание прибора должно опознаваться как таймаут")
}

func TestConnectRefused(t *testing.T) {
	// Адрес без слушателя
	c := newTestClient("127.0.0.1:1", 200*time.Millisecond)
	err := c.Connect()
	require.Error(t, err)
	require.False(t, c.IsConnected())
}

func TestCloseResetsState(t *testing.T) {
	address := fakeInstrumentServer(t, map[string]string{
		"*IDN?": "Fake,X100,0,1.0",
	})

	c := newTestClient(address, time.Second)
	require.NoError(t, c.Connect())
	require.NoError(t, c.Close())

	require.False(t, c.IsConnected())
	require.Empty(t, c.Model())

	err := c.Write("FREQ:CENT 1HZ")
	require.Error(t, err, "Запись в закрытый транспорт невозможна")
}

func TestIsTimeout(t *testing.T) {
	require.False(t, IsTimeout(fmt.Errorf("обычная ошибка")))
	require.False(t, IsTimeout(nil))
}

func TestModelFromIdentity(t *testing.T) {
	require.Equal(t, "FSW-26", modelFromIdentity("Rohde&Schwarz,FSW-26,1312.8000K26,1.70"))
	require.Equal(t, "no-commas", modelFromIdentity("no-commas"))
}
