package adspower

import "encoding/json"

// Response is the envelope every AdsPower API endpoint returns. Code zero
// means success; any other value is a failure described by Msg. The sentinel
// response produced after exhausted retries uses Code -1.
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// OK reports whether the response denotes success.
func (r Response) OK() bool {
	return r.Code == 0
}

// Profile is one entry of the full profile list.
type Profile struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
}

// DisplayName returns the profile's name, synthesizing one from the serial
// number or id when the profile is unnamed.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.SerialNumber != "" {
		return "Profile_" + p.SerialNumber
	}
	return "Profile_" + p.UserID
}

// WSEndpoints holds the live session addresses a running profile exposes.
type WSEndpoints struct {
	Puppeteer  string `json:"puppeteer"`
	Playwright string `json:"playwright"`
	DevTools   string `json:"devtools"`
}

// ActiveProfile is one entry of the currently running profile list.
type ActiveProfile struct {
	UserID string      `json:"user_id"`
	WS     WSEndpoints `json:"ws"`
}

// Endpoint returns the first usable session address, preferring the
// puppeteer endpoint, then playwright, then raw devtools. Empty when the
// profile exposes none.
func (p ActiveProfile) Endpoint() string {
	switch {
	case p.WS.Puppeteer != "":
		return p.WS.Puppeteer
	case p.WS.Playwright != "":
		return p.WS.Playwright
	default:
		return p.WS.DevTools
	}
}

// StatusResult is the decoded result of a profile status query. Code and
// Msg mirror the response envelope; Status is only meaningful when Code is
// zero.
type StatusResult struct {
	Code   int
	Msg    string
	Status string
}

// Active reports whether the profile is reachable and not inactive.
func (s StatusResult) Active() bool {
	return s.Code == 0 && s.Status != "inactive"
}
