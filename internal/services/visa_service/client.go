package visa_service

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
)

// Client - транспорт к прибору поверх SCPI raw socket (обычно порт 5025).
// Единственный разделяемый ресурс системы: все обращения транслятора
// сериализуются мьютексом, потому что прибор исполняет одну команду за раз.
type Client struct {
	address      string
	timeout      time.Duration
	commandDelay time.Duration

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	stateMu   sync.RWMutex
	connected bool
	identity  string
	model     string

	logger *logging.Logger
}

func NewClient(cfg *config.AppConfig, logger *logging.Logger) interfaces.Transport {
	return &Client{
		address:      cfg.Visa.Address,
		timeout:      cfg.Visa.Timeout,
		commandDelay: cfg.Visa.CommandDelay,
		logger:       logger.WithPrefix("VISA"),
	}
}

// Connect устанавливает соединение и опознает прибор через *IDN?
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
	}

	conn, err := net.DialTimeout("tcp", c.address, c.timeout)
	if err != nil {
		c.setConnected(false, "", "")
		return fmt.Errorf("не удалось подключиться к прибору %s: %w", c.address, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)

	identity, err := c.queryLocked("*IDN?")
	if err != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.setConnected(false, "", "")
		return fmt.Errorf("прибор %s не ответил на *IDN?: %w", c.address, err)
	}

	identity = strings.TrimSpace(identity)
	c.setConnected(true, identity, modelFromIdentity(identity))

	c.logger.Info("Instrument connected", "address", c.address, "identity", identity, "model", c.Model())
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setConnected(false, "", "")
	c.logger.Info("Instrument disconnected", "address", c.address)
	return nil
}

func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.connected
}

func (c *Client) Identity() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.identity
}

func (c *Client) Model() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.model
}

// Query отправляет команду и ждет одну строку ответа
func (c *Client) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked(cmd)
}

// Write отправляет команду без чтения ответа
func (c *Client) Write(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(cmd)
}

func (c *Client) writeLocked(cmd string) error {
	if c.conn == nil {
		return fmt.Errorf("транспорт не подключен")
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("ошибка записи команды '%s': %w", cmd, err)
	}

	// Прибор не умеет pipelining: выдерживаем паузу между командами
	if c.commandDelay > 0 {
		time.Sleep(c.commandDelay)
	}
	return nil
}

func (c *Client) queryLocked(cmd string) (string, error) {
	if err := c.writeLocked(cmd); err != nil {
		return "", err
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа на '%s': %w", cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Client) setConnected(connected bool, identity, model string) {
	c.stateMu.Lock()
	c.connected = connected
	c.identity = identity
	c.model = model
	c.stateMu.Unlock()
}

// modelFromIdentity достает модель из ответа *IDN?
// Формат: "Производитель,Модель,Серийный номер,Прошивка"
func modelFromIdentity(identity string) string {
	parts := strings.Split(identity, ",")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[1])
	}
	return identity
}

// IsTimeout сообщает, была ли ошибка транспортным таймаутом
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
