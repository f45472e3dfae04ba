package filter

// Yule-Walker stage state, transposed direct form II.
type yuleState struct {
	z [YuleOrder]float64
}

func (s *yuleState) process(y *Yule, in float64) float64 {
	out := y.B[0]*in + s.z[0]

	for i := range YuleOrder - 1 {
		s.z[i] = y.B[i+1]*in - y.A[i+1]*out + s.z[i+1]
	}

	s.z[YuleOrder-1] = y.B[YuleOrder]*in - y.A[YuleOrder]*out

	return out
}

// Biquad filter state.
type biquadState struct {
	z1, z2 float64
}

func (s *biquadState) process(b *Biquad, in float64) float64 {
	out := b.B0*in + s.z1
	s.z1 = b.B1*in - b.A1*out + s.z2
	s.z2 = b.B2*in - b.A2*out

	return out
}

// Chain is the equal-loudness filter of one channel: Yule-Walker followed by the Butterworth high-pass.
// Each channel owns its chain.
type Chain struct {
	coeffs *Coefficients
	yule   yuleState
	butter biquadState
}

// NewChain returns a zeroed chain for the given coefficients.
func NewChain(coeffs *Coefficients) *Chain {
	return &Chain{coeffs: coeffs}
}

// Process filters one sample.
func (c *Chain) Process(sample float64) float64 {
	return c.butter.process(&c.coeffs.Butter, c.yule.process(&c.coeffs.Yule, sample))
}

// ProcessBlock filters src into dst, in order. dst must be at least len(src) long; dst and src may alias.
func (c *Chain) ProcessBlock(dst, src []float64) {
	yule := &c.coeffs.Yule
	butter := &c.coeffs.Butter

	for i, sample := range src {
		dst[i] = c.butter.process(butter, c.yule.process(yule, sample))
	}
}

// Reset zeroes the delay lines.
func (c *Chain) Reset() {
	c.yule = yuleState{}
	c.butter = biquadState{}
}
