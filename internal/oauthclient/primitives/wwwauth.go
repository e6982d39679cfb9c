package primitives

import "strings"

// Challenge is one parsed WWW-Authenticate challenge: an auth-scheme
// plus either a bare token68 credential or a set of lowercased
// auth-param key/value pairs (RFC 9110 §11.6.1).
type Challenge struct {
	Scheme  string
	Token68 string
	Params  map[string]string
}

// ParseWWWAuthenticate tokenizes a WWW-Authenticate header value into
// its comma-separated challenges. The grammar is ambiguous between
// "next auth-param of this challenge" and "next challenge's scheme", so
// after each comma the parser looks ahead for a following "=" to decide;
// finding one means "same challenge, new param", not finding one means
// "new challenge". The parser is total: every loop iteration advances
// the cursor by at least one byte, so malformed input terminates rather
// than looping forever.
func ParseWWWAuthenticate(header string) []Challenge {
	p := &authParser{s: header}
	var challenges []Challenge

	p.skipOWS()
	for p.pos < len(p.s) {
		start := p.pos

		scheme, ok := p.readToken()
		if !ok {
			p.pos++
			p.skipToNextComma()
			continue
		}

		ch := Challenge{Scheme: scheme, Params: map[string]string{}}
		hadSpace := p.skipOWS() > 0

		switch {
		case p.pos >= len(p.s) || p.peek() == ',':
			// Bare scheme, no credential.
		case !hadSpace:
			// A token directly glued to the scheme with no separating
			// space isn't valid grammar; treat the scheme as bare and
			// let the next loop iteration re-scan from here.
		default:
			p.parseCredential(&ch)
		}

		challenges = append(challenges, ch)
		p.skipOWS()
		p.consumeOptionalComma()

		if p.pos == start {
			p.pos++ // guarantee forward progress on unparseable input
		}
	}
	return challenges
}

// parseCredential consumes either a token68 or an auth-param list
// immediately following a scheme + mandatory space.
func (p *authParser) parseCredential(ch *Challenge) {
	save := p.pos
	key, ok := p.readToken()
	if !ok {
		return
	}
	p.skipBWS()
	if p.peek() == '=' {
		// A token followed only by "=" padding up to the end of the
		// challenge is a token68 credential, not the start of key=value.
		rest := strings.TrimLeft(strings.TrimLeft(p.s[p.pos:], "="), " \t")
		if rest == "" || rest[0] == ',' {
			p.pos = save
			ch.Token68 = p.readToken68()
			return
		}
	}
	if p.peek() != '=' {
		// Not "key=value" — this is a token68 credential (or garbage);
		// rewind and consume it as token68 characters.
		p.pos = save
		tok68 := p.readToken68()
		ch.Token68 = tok68
		return
	}

	p.pos++ // consume '='
	p.skipBWS()
	val := p.readTokenOrQuoted()
	ch.Params[strings.ToLower(key)] = val

	for {
		p.skipOWS()
		if p.peek() != ',' {
			return
		}
		afterComma := p.pos + 1
		savePos := p.pos
		p.pos = afterComma
		p.skipOWS()

		k2, ok := p.readToken()
		if !ok {
			p.pos = savePos
			return
		}
		p.skipBWS()
		if p.peek() != '=' {
			// Next token isn't a "key=", so the comma began a new
			// challenge; rewind to just before the comma.
			p.pos = savePos
			return
		}
		p.pos++
		p.skipBWS()
		v2 := p.readTokenOrQuoted()
		ch.Params[strings.ToLower(k2)] = v2
	}
}

// FindChallenge scans all challenges in header for one whose scheme
// case-insensitively matches name (spec §4.5: "finding the Bearer
// challenge requires scanning all challenges, not just the first").
func FindChallenge(header, name string) (Challenge, bool) {
	for _, c := range ParseWWWAuthenticate(header) {
		if strings.EqualFold(c.Scheme, name) {
			return c, true
		}
	}
	return Challenge{}, false
}

type authParser struct {
	s   string
	pos int
}

func (p *authParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

// skipOWS skips optional whitespace (space/tab) and returns how many
// bytes were skipped.
func (p *authParser) skipOWS() int {
	start := p.pos
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
	return p.pos - start
}

// skipBWS is RFC 9110's "bad whitespace" allowance around "=" in
// auth-params; same as OWS for our purposes.
func (p *authParser) skipBWS() { p.skipOWS() }

func (p *authParser) skipToNextComma() {
	for p.pos < len(p.s) && p.s[p.pos] != ',' {
		p.pos++
	}
	if p.pos < len(p.s) {
		p.pos++
		p.skipOWS()
	}
}

func (p *authParser) consumeOptionalComma() {
	if p.peek() == ',' {
		p.pos++
		p.skipOWS()
	}
}

func isTokenChar(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case strings.IndexByte("!#$%&'*+-.^_`|~", b) >= 0:
		return true
	default:
		return false
	}
}

func (p *authParser) readToken() (string, bool) {
	start := p.pos
	for p.pos < len(p.s) && isTokenChar(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return p.s[start:p.pos], true
}

func isToken68Char(b byte) bool {
	return isTokenChar(b) || b == '+' || b == '/' || b == '='
}

func (p *authParser) readToken68() string {
	start := p.pos
	for p.pos < len(p.s) && isToken68Char(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos]
}

// readTokenOrQuoted reads an auth-param value: a quoted-string (with
// backslash escapes) if it starts with '"', else a bare token run up to
// the next comma or whitespace.
func (p *authParser) readTokenOrQuoted() string {
	if p.peek() != '"' {
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] != ',' && p.s[p.pos] != ' ' && p.s[p.pos] != '\t' {
			p.pos++
		}
		return p.s[start:p.pos]
	}

	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '\\' && p.pos+1 < len(p.s) {
			b.WriteByte(p.s[p.pos+1])
			p.pos += 2
			continue
		}
		if c == '"' {
			p.pos++
			break
		}
		b.WriteByte(c)
		p.pos++
	}
	return b.String()
}
