package robots

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// maxRobotsBytes caps how much of a robots.txt is read.
const maxRobotsBytes = 512 * 1024

type rule struct {
	re          *regexp.Regexp
	specificity int
	allow       bool
}

type group struct {
	agents []string
	rules  []rule
}

// Rules is a parsed robots.txt.
type Rules struct {
	groups []group
}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	sc := bufio.NewScanner(strings.NewReader(text))
	var groups []group
	var cur *group
	inAgents := false
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent":
			if cur == nil || !inAgents {
				groups = append(groups, group{})
				cur = &groups[len(groups)-1]
			}
			cur.agents = append(cur.agents, strings.ToLower(val))
			inAgents = true
		case "allow", "disallow":
			inAgents = false
			if cur == nil || val == "" {
				continue
			}
			cur.rules = append(cur.rules, compile(val, key == "allow"))
		}
	}
	return Rules{groups: groups}
}

// compile turns a path pattern with '*' and a trailing '$' into an anchored
// regexp. Specificity is the pattern length without wildcards.
func compile(pattern string, allow bool) rule {
	p, anchored := strings.CutSuffix(pattern, "$")
	parts := strings.Split(p, "*")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchored {
		expr += "$"
	}
	return rule{re: regexp.MustCompile(expr), specificity: len(p) - strings.Count(p, "*"), allow: allow}
}

// Allowed reports whether path (with optional query) may be fetched by
// userAgent. The longest agent token wins over '*'; within a group the most
// specific matching rule wins and Allow breaks ties. No match means allowed.
func (r Rules) Allowed(userAgent, path string) bool {
	g := r.groupFor(userAgent)
	if g == nil {
		return true
	}
	best, allow := -1, true
	for _, rl := range g.rules {
		if !rl.re.MatchString(path) {
			continue
		}
		if rl.specificity > best || (rl.specificity == best && rl.allow) {
			best, allow = rl.specificity, rl.allow
		}
	}
	return allow
}

func (r Rules) groupFor(userAgent string) *group {
	ua := strings.ToLower(userAgent)
	var best *group
	bestLen := -1
	for i := range r.groups {
		for _, a := range r.groups[i].agents {
			n := -1
			switch {
			case a == "*":
				n = 0
			case a != "" && strings.Contains(ua, a):
				n = len(a)
			}
			if n > bestLen {
				best, bestLen = &r.groups[i], n
			}
		}
	}
	return best
}

type entry struct {
	rules   Rules
	expires time.Time
}

// Checker fetches and caches robots.txt per origin. Fetch failures and
// non-2xx responses allow everything.
type Checker struct {
	HTTPClient *http.Client
	UserAgent  string
	// TTL bounds how long rules are cached. Zero means 30 minutes.
	TTL time.Duration

	mu    sync.Mutex
	cache map[string]entry
	now   func() time.Time
}

// Allowed reports whether pageURL may be fetched.
func (c *Checker) Allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, fmt.Errorf("unsupported url scheme: %q", u.Scheme)
	}
	rules := c.rulesFor(ctx, u.Scheme+"://"+u.Host)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.Allowed(c.UserAgent, path), nil
}

func (c *Checker) rulesFor(ctx context.Context, origin string) Rules {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	c.mu.Lock()
	if e, ok := c.cache[origin]; ok && now().Before(e.expires) {
		c.mu.Unlock()
		return e.rules
	}
	c.mu.Unlock()

	rules, err := c.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		log.Debug().Err(err).Str("origin", origin).Msg("robots.txt unavailable; allowing")
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.mu.Lock()
	if c.cache == nil {
		c.cache = make(map[string]entry)
	}
	c.cache[origin] = entry{rules: rules, expires: now().Add(ttl)}
	c.mu.Unlock()
	return rules
}

func (c *Checker) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Rules{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return Rules{}, fmt.Errorf("read robots: %w", err)
	}
	return Parse(string(b)), nil
}
