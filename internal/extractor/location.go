package extractor

import (
	"context"
	"net/mail"
	"net/netip"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"emailanalyser/internal/model"
)

var countryTLDs = map[string]string{
	"uk": "United Kingdom",
	"de": "Germany",
	"fr": "France",
	"au": "Australia",
	"ca": "Canada",
	"cn": "China",
	"in": "India",
	"it": "Italy",
	"es": "Spain",
	"us": "United States",
	"jp": "Japan",
	"se": "Sweden",
	"be": "Belgium",
	"pl": "Poland",
	"ch": "Switzerland",
	"nl": "Netherlands",
}

var (
	ipHeaders = []string{"Received", "X-Originating-IP", "X-Sender-IP"}
	ipv4Re    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// GeoLocator resolves a public IP address to a country name. An empty
// name with a nil error means the address is unknown.
type GeoLocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

type LocationExtractor struct {
	nlp    NLP
	geo    GeoLocator
	logger *zap.Logger
}

// NewLocationExtractor creates the extractor. geo may be nil, which
// disables the IP lookup.
func NewLocationExtractor(nlp NLP, geo GeoLocator, logger *zap.Logger) *LocationExtractor {
	return &LocationExtractor{nlp: nlp, geo: geo, logger: logger}
}

// Extract tries the signature, the sender domain and finally the relay IPs.
func (l *LocationExtractor) Extract(ctx context.Context, e *model.Email) *string {
	if loc := l.FromSignature(e.Signature); loc != "" {
		return &loc
	}
	if loc := FromDomain(e.From); loc != "" {
		return &loc
	}
	if loc := l.FromIP(ctx, e); loc != "" {
		return &loc
	}
	return nil
}

func (l *LocationExtractor) FromSignature(signature string) string {
	if strings.TrimSpace(signature) == "" {
		return ""
	}
	loc, _ := firstEntity(l.nlp, signature, LabelGPE, LabelLoc)
	return loc
}

// FromDomain maps a country-code TLD of the sender address to a country.
func FromDomain(from string) string {
	domain := senderDomain(from)
	if domain == "" {
		return ""
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	labels := strings.Split(suffix, ".")
	return countryTLDs[labels[len(labels)-1]]
}

func senderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], "<> \t"))
}

// FromIP looks up the first public IPv4 address found in the relay headers.
func (l *LocationExtractor) FromIP(ctx context.Context, e *model.Email) string {
	if l.geo == nil {
		return ""
	}
	for _, name := range ipHeaders {
		value, ok := e.Header(name)
		if !ok {
			continue
		}
		for _, candidate := range ipv4Re.FindAllString(value, -1) {
			ip, err := netip.ParseAddr(candidate)
			if err != nil || !isPublic(ip) {
				continue
			}
			country, err := l.geo.Country(ctx, ip.String())
			if err != nil {
				l.logger.Warn("IP geolocation failed", zap.String("ip", ip.String()), zap.Error(err))
				continue
			}
			if country != "" {
				return country
			}
		}
	}
	return ""
}

func isPublic(ip netip.Addr) bool {
	return ip.IsGlobalUnicast() && !ip.IsPrivate()
}
