package engine

// PayloadPath exposes temp payload reservation to tests.
var PayloadPath = payloadPath
