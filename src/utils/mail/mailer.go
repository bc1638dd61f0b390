package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"

	"github.com/dajohi/goemail"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"go.uber.org/ratelimit"
)

// Sends plain text emails
type Mailer interface {
	IsEnabled() bool
	Send(ctx context.Context, to, subject, body string) error
}

type Client struct {
	log     *logrus.Entry
	monitor *monitoring.Monitor

	smtp     *goemail.SMTP
	limiter  ratelimit.Limiter
	from     string
	fromName string
	disabled bool
}

func NewClient(config *config.Config) (self *Client, err error) {
	self = new(Client)
	self.log = logger.NewSublogger("mail")

	// Email is disabled without a server
	if config.Smtp.Host == "" {
		self.log.Info("Mail: DISABLED")
		self.disabled = true
		return
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	scheme := "smtp"
	if config.Smtp.Port == 465 {
		scheme = "smtps"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", config.Smtp.Host, config.Smtp.Port),
	}
	if config.Smtp.User != "" {
		u.User = url.UserPassword(config.Smtp.User, config.Smtp.Password)
	}

	/* #nosec */
	self.smtp, err = goemail.NewSMTP(u.String(), &tls.Config{
		ServerName:         config.Smtp.Host,
		InsecureSkipVerify: config.Smtp.SkipVerify,
	})
	if err != nil {
		return nil, err
	}

	perSecond := config.Smtp.MaxPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	self.limiter = ratelimit.New(perSecond)
	self.from = config.Smtp.From
	self.fromName = config.Smtp.FromName

	self.log.WithField("host", u.Host).WithField("from", self.from).Info("Mail: ENABLED")
	return
}

func (self *Client) WithMonitor(monitor *monitoring.Monitor) *Client {
	self.monitor = monitor
	return self
}

func (self *Client) IsEnabled() bool {
	return !self.disabled
}

func (self *Client) Send(ctx context.Context, to, subject, body string) (err error) {
	if self.disabled {
		return nil
	}

	// Blocks until sending is allowed
	self.limiter.Take()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	msg := goemail.NewMessage(self.from, subject, body)
	msg.SetName(self.fromName)
	msg.AddTo(to)

	err = self.smtp.Send(msg)
	if err != nil {
		if self.monitor != nil {
			self.monitor.GetReport().Mailer.Errors.SendErrors.Inc()
		}
		self.log.WithError(err).WithField("to", to).Warn("Failed to send email")
		return
	}

	if self.monitor != nil {
		self.monitor.GetReport().Mailer.State.Sent.Inc()
	}
	return
}
