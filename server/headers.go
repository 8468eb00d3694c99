package server

// HeaderXResponseTime reports request processing duration. Set by the timing
// middleware on all responses.
const HeaderXResponseTime = "X-Response-Time"
