package holistic

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Expansions maps acronyms that must be spelled out on first use to their
// full forms.
var Expansions = map[string]string{
	"MEC":       "Multi-access Edge Computing",
	"IoT":       "Internet of Things",
	"IIoT":      "Industrial Internet of Things",
	"OT":        "Operational Technology",
	"IT":        "Information Technology",
	"AI":        "Artificial Intelligence",
	"ML":        "Machine Learning",
	"DDS":       "Data Distribution Service",
	"API":       "Application Programming Interface",
	"SDK":       "Software Development Kit",
	"CI/CD":     "Continuous Integration/Continuous Delivery",
	"FaaS":      "Function as a Service",
	"PaaS":      "Platform as a Service",
	"SaaS":      "Software as a Service",
	"IaaS":      "Infrastructure as a Service",
	"VM":        "Virtual Machine",
	"K8s":       "Kubernetes",
	"DNS":       "Domain Name System",
	"HTTP":      "Hypertext Transfer Protocol",
	"HTTPS":     "Hypertext Transfer Protocol Secure",
	"REST":      "Representational State Transfer",
	"JSON":      "JavaScript Object Notation",
	"XML":       "Extensible Markup Language",
	"YAML":      "YAML Ain't Markup Language",
	"TCP":       "Transmission Control Protocol",
	"UDP":       "User Datagram Protocol",
	"IP":        "Internet Protocol",
	"VPN":       "Virtual Private Network",
	"SSL":       "Secure Sockets Layer",
	"TLS":       "Transport Layer Security",
	"PKI":       "Public Key Infrastructure",
	"SSO":       "Single Sign-On",
	"OAuth":     "Open Authorization",
	"JWT":       "JSON Web Token",
	"MQTT":      "Message Queuing Telemetry Transport",
	"AMQP":      "Advanced Message Queuing Protocol",
	"gRPC":      "Google Remote Procedure Call",
	"SQL":       "Structured Query Language",
	"NoSQL":     "Not Only SQL",
	"GPU":       "Graphics Processing Unit",
	"CPU":       "Central Processing Unit",
	"RAM":       "Random Access Memory",
	"ROM":       "Read-Only Memory",
	"SSD":       "Solid State Drive",
	"NVMe":      "Non-Volatile Memory Express",
	"QoS":       "Quality of Service",
	"SLA":       "Service Level Agreement",
	"KPI":       "Key Performance Indicator",
	"ROI":       "Return on Investment",
	"PoC":       "Proof of Concept",
	"MVP":       "Minimum Viable Product",
	"DevOps":    "Development Operations",
	"DevSecOps": "Development Security Operations",
	"GitOps":    "Git Operations",
	"AIOps":     "Artificial Intelligence for IT Operations",
	"MLOps":     "Machine Learning Operations",
	"RFC":       "Request for Comments",
	"OSI":       "Open Systems Interconnection",
	"LAN":       "Local Area Network",
	"WAN":       "Wide Area Network",
	"SDN":       "Software-Defined Networking",
	"NFV":       "Network Functions Virtualization",
	"VNF":       "Virtual Network Function",
	"CNF":       "Cloud-Native Network Function",
	"5G":        "Fifth Generation",
	"LTE":       "Long-Term Evolution",
	"NR":        "New Radio",
	"RAN":       "Radio Access Network",
	"UE":        "User Equipment",
	"UPF":       "User Plane Function",
	"SMF":       "Session Management Function",
	"AMF":       "Access and Mobility Management Function",
}

// Organizations are acronyms used as proper names and never expanded.
var Organizations = map[string]bool{
	"ETSI": true, "IEEE": true, "DTC": true, "GSMA": true,
	"TM Forum": true, "TMF": true, "3GPP": true, "IETF": true,
	"W3C": true, "ISO": true, "IEC": true, "NIST": true,
	"OASIS": true, "OMG": true, "OPC": true, "IIC": true,
	"OGC": true, "CNCF": true, "LF": true, "Apache": true,
	"AWS": true, "GCP": true, "Azure": true,
}

var (
	acronymRes   map[string]*regexp.Regexp
	expansionRes map[string]*regexp.Regexp
)

func init() {
	acronymRes = make(map[string]*regexp.Regexp, len(Expansions))
	expansionRes = make(map[string]*regexp.Regexp, len(Expansions))
	for acr, exp := range Expansions {
		acronymRes[acr] = regexp.MustCompile(`\b` + regexp.QuoteMeta(acr) + `\b`)
		expansionRes[acr] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(exp) + `\s*\(` + regexp.QuoteMeta(acr) + `\)`)
	}
}

// Expansion returns the full form of an acronym, or the acronym itself when
// it has none.
func Expansion(acronym string) string {
	if exp, ok := Expansions[acronym]; ok {
		return exp
	}
	return acronym
}

// FormatFirstUse renders the first-use form: "Expansion (ACRONYM)".
func FormatFirstUse(acronym string) string {
	if exp, ok := Expansions[acronym]; ok {
		return fmt.Sprintf("%s (%s)", exp, acronym)
	}
	return acronym
}

// IsOrganization reports whether an acronym is an organization name.
func IsOrganization(acronym string) bool {
	return Organizations[acronym]
}

// AcronymTracker tracks which acronyms have been defined so far. Chunks must
// be processed in document order; ProcessChunk optimistically marks a chunk's
// undefined acronyms as defined before the rewrite happens, so concurrent
// rewriters of later chunks already see them as covered.
type AcronymTracker struct {
	Defined map[string]bool
	ByChunk map[string][]string
}

func NewAcronymTracker() *AcronymTracker {
	return &AcronymTracker{
		Defined: make(map[string]bool),
		ByChunk: make(map[string][]string),
	}
}

// ScanExistingDefinitions records acronyms the original document already
// expands, so rewrites never re-expand them.
func (t *AcronymTracker) ScanExistingDefinitions(fullText string) {
	for acr, re := range expansionRes {
		if re.MatchString(fullText) {
			t.Defined[acr] = true
		}
	}
}

func (t *AcronymTracker) acronymsIn(text string) []string {
	var found []string
	for acr, re := range acronymRes {
		if re.MatchString(text) {
			found = append(found, acr)
		}
	}
	sort.Strings(found)
	return found
}

// ProcessChunk splits the chunk's acronyms into already-defined and
// first-use sets, then marks the first-use set as defined.
func (t *AcronymTracker) ProcessChunk(text, chunkID string) (defined, undefined []string) {
	for _, acr := range t.acronymsIn(text) {
		switch {
		case t.Defined[acr]:
			defined = append(defined, acr)
		case expansionRes[acr].MatchString(text):
			// Already expanded inside this chunk.
		default:
			undefined = append(undefined, acr)
		}
	}
	for _, acr := range undefined {
		t.Defined[acr] = true
	}
	if chunkID != "" && len(undefined) > 0 {
		t.ByChunk[chunkID] = undefined
	}
	return defined, undefined
}

// FormatForPrompt renders the defined/undefined sets for the rewrite prompt.
func FormatForPrompt(defined, undefined []string) (string, string) {
	definedStr := "(none)"
	if len(defined) > 0 {
		items := make([]string, len(defined))
		for i, acr := range defined {
			items[i] = fmt.Sprintf("- %s (%s)", acr, Expansion(acr))
		}
		definedStr = strings.Join(items, "\n")
	}
	undefinedStr := "(none - all acronyms already defined)"
	if len(undefined) > 0 {
		items := make([]string, len(undefined))
		for i, acr := range undefined {
			items[i] = fmt.Sprintf("- %s should be expanded as %q", acr, FormatFirstUse(acr))
		}
		undefinedStr = strings.Join(items, "\n")
	}
	return definedStr, undefinedStr
}
