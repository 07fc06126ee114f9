// Package netprobe answers "does this device reach the internet?" with a
// DNS lookup against a public resolver, falling back to ICMP echo.
package netprobe

import (
	"context"
	"log/slog"
	"time"

	"github.com/miekg/dns"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/strct-org/minicp/internal/config"
)

const probeName = "cloudflare.com."

type Config struct {
	DNSAddr string        // host:port of a resolver, "" disables the DNS probe
	Host    string        // ICMP target, "" disables the ping probe
	Timeout time.Duration // per probe
}

type Result struct {
	DNS  bool          `json:"dns"`
	ICMP bool          `json:"icmp"`
	RTT  time.Duration `json:"rtt_ns,omitempty"`
}

func (r Result) Online() bool { return r.DNS || r.ICMP }

type Prober struct {
	cfg Config
}

func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Prober{cfg: cfg}
}

func NewFromConfig(cfg *config.Config) *Prober {
	return New(Config{DNSAddr: cfg.ProbeDNS, Host: cfg.ProbeHost})
}

// Check runs the DNS probe and, only if it fails, the ICMP probe.
func (p *Prober) Check(ctx context.Context) Result {
	var res Result
	if p.cfg.DNSAddr != "" {
		res.DNS, res.RTT = p.lookup(ctx)
		if res.DNS {
			return res
		}
	}
	if p.cfg.Host != "" {
		res.ICMP, res.RTT = p.ping(ctx)
	}
	return res
}

func (p *Prober) Online(ctx context.Context) bool {
	return p.Check(ctx).Online()
}

func (p *Prober) lookup(ctx context.Context) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(probeName, dns.TypeA)
	m.RecursionDesired = true

	c := &dns.Client{Net: "udp", Timeout: p.cfg.Timeout}
	in, rtt, err := c.ExchangeContext(ctx, m, p.cfg.DNSAddr)
	if err != nil {
		slog.Debug("netprobe: dns probe failed", "resolver", p.cfg.DNSAddr, "err", err)
		return false, 0
	}
	return in.Rcode == dns.RcodeSuccess && len(in.Answer) > 0, rtt
}

func (p *Prober) ping(ctx context.Context) (bool, time.Duration) {
	pinger, err := probing.NewPinger(p.cfg.Host)
	if err != nil {
		slog.Debug("netprobe: ping setup failed", "host", p.cfg.Host, "err", err)
		return false, 0
	}
	pinger.SetPrivileged(true)
	pinger.Count = 2
	pinger.Timeout = p.cfg.Timeout

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		pinger.Stop()
	}()

	if err := pinger.Run(); err != nil {
		slog.Debug("netprobe: ping failed", "host", p.cfg.Host, "err", err)
		return false, 0
	}
	stats := pinger.Statistics()
	return stats.PacketsRecv > 0, stats.AvgRtt
}
