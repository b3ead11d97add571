package mac

// NextFreeDutyCycleMs returns how many milliseconds remain before the
// next transmission is legally allowed, or 0 if the device is already
// clear. Subtraction is performed in uint32 space so a wrapped clock is
// handled the same wrap-safe way bsp.ElapsedMs documents.
func (e *Engine) NextFreeDutyCycleMs(nowMs int64) int64 {
	elapsed := uint32(nowMs) - uint32(e.dutyCycleTimestampMs)
	remaining := int64(uint32(e.dutyCycleTimeOffMs) - elapsed)
	if remaining < 0 || elapsed >= uint32(e.dutyCycleTimeOffMs) {
		return 0
	}
	return remaining
}

// noteTransmission records a just-completed airtime so the duty-cycle
// gate can compute the next free slot. timeOnAirMs is the measured or
// estimated airtime of the frame just sent; dutyCycleDivisor is the inverse
// of the regulatory duty cycle (e.g. 100 for a 1% band), and the off time
// is timeOnAirMs * dutyCycleDivisor.
func (e *Engine) noteTransmission(nowMs, timeOnAirMs int64, dutyCycleDivisor int64) {
	if dutyCycleDivisor <= 0 {
		dutyCycleDivisor = 1
	}
	e.dutyCycleTimestampMs = nowMs
	e.dutyCycleTimeOffMs = timeOnAirMs * dutyCycleDivisor
}
