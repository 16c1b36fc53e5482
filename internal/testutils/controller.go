package testutils

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// Monitoring acknowledgements printed by a real controller.
var monitorReplies = map[string]string{
	"KBMON": "Keypad button monitoring enabled",
	"GSMON": "GrafikEye scene monitoring enabled",
	"DLMON": "Dimmer level monitoring enabled",
	"KLMON": "Keypad led monitoring enabled",
}

// Controller is a minimal Homeworks processor serving one connection.
// With Credentials set it asks for a login before accepting commands;
// after each command it prints an "LNET> " prompt until PROMPTOFF.
type Controller struct {
	Credentials string
	Banner      string // sent unterminated right after the connection opens

	// LateLogin holds the login banner until RequestLogin is called.
	LateLogin bool
	// LoginGate, when set, delays "login successful" until it is closed.
	LoginGate chan struct{}

	conn net.Conn

	writeMu sync.Mutex

	mu          sync.Mutex
	received    []string
	sendPrompts bool
	loggedIn    bool
}

// NewController wraps the controller side of a connection.
func NewController(conn net.Conn) *Controller {
	return &Controller{conn: conn, sendPrompts: true}
}

// Serve handles the connection until it is closed.
func (c *Controller) Serve() {
	defer c.conn.Close()

	if c.Banner != "" {
		c.send(c.Banner, false)
	}
	if c.Credentials != "" && !c.LateLogin {
		c.RequestLogin()
	}

	r := bufio.NewReader(c.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		c.mu.Lock()
		c.received = append(c.received, line)
		needLogin := c.Credentials != "" && !c.loggedIn
		c.mu.Unlock()

		if needLogin {
			c.login(line)
			continue
		}
		c.command(line)
	}
}

func (c *Controller) login(line string) {
	if line != c.Credentials {
		c.send("login incorrect", true)
		c.send("LOGIN: ", false)
		return
	}

	if c.LoginGate != nil {
		<-c.LoginGate
	}

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	c.send("login successful", true)
}

// RequestLogin sends the login banner.
func (c *Controller) RequestLogin() error {
	return c.send("LOGIN: ", false)
}

func (c *Controller) command(line string) {
	cmd := strings.TrimSpace(line)

	c.mu.Lock()
	if cmd == "PROMPTOFF" {
		c.sendPrompts = false
	}
	prompts := c.sendPrompts
	c.mu.Unlock()

	if reply, ok := monitorReplies[cmd]; ok {
		c.send(reply, true)
	}
	if prompts {
		c.send("LNET> ", false)
	}
}

// Emit sends a status line to the client.
func (c *Controller) Emit(line string) error {
	return c.send(line, true)
}

func (c *Controller) send(data string, terminate bool) error {
	if terminate {
		data += "\r\n"
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write([]byte(data))
	return err
}

// Received returns every line the client sent, in order.
func (c *Controller) Received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

// Close drops the connection.
func (c *Controller) Close() error {
	return c.conn.Close()
}
