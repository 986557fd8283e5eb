// Package domaininfo looks up registration data for the domain of a URL.
//
// Freshly registered domains are a classic phishing tell, so reports show
// the domain age next to the verdict. The lookup is informational only:
// the arbiter never sees it, and a failed lookup is logged rather than
// recorded as a scan error. WHOIS servers are slow, rate limited and
// inconsistent in their output format.
//
// Lookups use github.com/likexian/whois for the query and
// github.com/likexian/whois-parser to extract dates and the registrar.
// When the full host has no record (typical for sub-domains such as
// "login.example.com"), the parent domain is tried next.
package domaininfo
