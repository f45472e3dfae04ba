package filter

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

// ErrUnsupportedSampleRate is returned when no coefficient set exists for a rate.
var ErrUnsupportedSampleRate = errors.New("unsupported sample rate")

// YuleOrder is the order of the equal-loudness stage.
const YuleOrder = 10

// Yule holds the numerator (B) and denominator (A) of the equal-loudness IIR. A[0] is always 1.
type Yule struct {
	B [YuleOrder + 1]float64
	A [YuleOrder + 1]float64
}

// Biquad filter coefficients, normalized so that a0 == 1.
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Coefficients is the full per-rate coefficient set of the loudness filter chain.
type Coefficients struct {
	SampleRate int
	CutoffHz   float64
	Yule       Yule
	Butter     Biquad
}

// Yule-Walker approximations of the inverted 80 phon equal-loudness contour.
// Up to 48 kHz each rate is its own 10th order fit of the contour, truncated at Nyquist. Tables above 48 kHz
// are the 48 kHz design mapped pole by pole onto the higher rate, gain matched at 1 kHz; the two negative
// real zeros move as one conjugate pair.
//
//nolint:gochecknoglobals,dupl // coefficient data, effectively const
var yuleTables = map[int]Yule{
	8000: {
		B: [YuleOrder + 1]float64{
			0.53648789255105, -0.42163034350696, -0.00275953611929, 0.04267842219415, -0.10214864179676,
			0.14590772289388, -0.02459864859345, -0.11202315195388, -0.04060034127000, 0.04788665548180,
			-0.02217936801134,
		},
		A: [YuleOrder + 1]float64{
			1, -0.25049871956020, -0.43193942311114, -0.03424681017675, -0.04678328784242,
			0.26408300200955, 0.15113130533216, -0.17556493366449, -0.18823009262115, 0.05477720428674,
			0.04704409688120,
		},
	},
	11025: {
		B: [YuleOrder + 1]float64{
			0.58100494960553, -0.53174909058578, -0.14289799034253, 0.17520704835522, 0.02377945217615,
			0.15558449135573, -0.25344790059353, 0.01628462406333, 0.06920467763959, -0.03721611395801,
			-0.00749618797172,
		},
		A: [YuleOrder + 1]float64{
			1, -0.51035327095184, -0.31863563325245, -0.20256413484477, 0.14728154134330,
			0.38952639978999, -0.23313271880868, -0.05246019024463, -0.02505961724053, 0.02442357316099,
			0.01818801111503,
		},
	},
	12000: {
		B: [YuleOrder + 1]float64{
			0.56619470757641, -0.75464456939302, 0.16242137742230, 0.16744243493672, -0.18901604199609,
			0.30931782841830, -0.27562961986224, 0.00647310677246, 0.08647503780351, -0.03788984554840,
			-0.00588215443421,
		},
		A: [YuleOrder + 1]float64{
			1, -1.04800335126349, 0.29156311971249, -0.26806001042947, 0.00819999645858,
			0.45054734505008, -0.33032403314006, 0.06739368333110, -0.04784254229033, 0.01639907836189,
			0.01807364323573,
		},
	},
	16000: {
		B: [YuleOrder + 1]float64{
			0.44915256608450, -0.14351757464547, -0.22784394429749, -0.01419140100551, 0.04078262797139,
			-0.12398163381748, 0.04097565135648, 0.10478503600251, -0.01863887810927, -0.03193428438915,
			0.00541907748707,
		},
		A: [YuleOrder + 1]float64{
			1, -0.62820619233671, 0.29661783706366, -0.37256372942400, 0.00213767857124,
			-0.42029820170918, 0.22199650564824, 0.00613424350682, 0.06747620744683, 0.05784820375801,
			0.03222754072173,
		},
	},
	18900: {
		B: [YuleOrder + 1]float64{
			0.38524531015141, -0.27682212062066, -0.09980181488807, 0.09951486755655, -0.08934020156633,
			-0.00322369330190, -0.00110329090695, 0.03784509844681, 0.01683906213305, -0.01147039862571,
			-0.01941767987193,
		},
		A: [YuleOrder + 1]float64{
			1, -1.29708918404536, 0.90399339674203, -0.29613799017858, -0.42326645916249, 0.37934887402258,
			-0.37919795944997, 0.23410283284820, -0.03892971758892, 0.00403009552353, 0.03640166626279,
		},
	},
	22050: {
		B: [YuleOrder + 1]float64{
			0.33642304856132, -0.25572241425570, -0.11828570177555, 0.11921148675203, -0.07834489609479,
			-0.00469977914380, -0.00589500224440, 0.05724228140351, 0.00832043980773, -0.01635381384540,
			-0.01760176568150,
		},
		A: [YuleOrder + 1]float64{
			1, -1.49858979367799, 0.87350271418188, 0.12205022308084, -0.80774944671438,
			0.47854794562326, -0.12453458140019, -0.04067510197014, 0.08333755284107, -0.04237348025746,
			0.02977207319925,
		},
	},
	24000: {
		B: [YuleOrder + 1]float64{
			0.30296907319327, -0.22613988682123, -0.08587323730772, 0.03282930172664, -0.00915702933434,
			-0.02364141202522, -0.00584456039913, 0.06276101321749, -0.00000828086748, 0.00205861885564,
			-0.02950134983287,
		},
		A: [YuleOrder + 1]float64{
			1, -1.61273165137247, 1.07977492259970, -0.25656257754070, -0.16276719120440,
			-0.22638893773906, 0.39120800788284, -0.22138138954925, 0.04500235387352, 0.02005851806501,
			0.00302439095741,
		},
	},
	32000: {
		B: [YuleOrder + 1]float64{
			0.15457299681924, -0.09331049056315, -0.06247880153653, 0.02163541888798, -0.05588393329856,
			0.04781476674921, 0.00222312597743, 0.03174092540049, -0.01390589421898, 0.00651420667831,
			-0.00881362733839,
		},
		A: [YuleOrder + 1]float64{
			1, -2.37898834973084, 2.84868151156327, -2.64577170229825, 2.23697657451713,
			-1.67148153367602, 1.00595954808547, -0.45953458054983, 0.16378164858596, -0.05032077717131,
			0.02347897407020,
		},
	},
	37800: {
		B: [YuleOrder + 1]float64{
			0.08775938282257, -0.01131658144177, -0.06203747199728, -0.01093834948515, -0.00137646774687,
			0.02113861676352, -0.01646006656876, 0.01976469238900, 0.00730372598403, -0.00298713270652,
			-0.00072525338201,
		},
		A: [YuleOrder + 1]float64{
			1, -2.63115242444120, 3.54777045131478, -3.82769766739999, 3.93348926831996, -3.55399223445318,
			2.72716850836092, -1.87459346938389, 1.12352811759021, -0.48638175423415, 0.11336134700933,
		},
	},
	44100: {
		B: [YuleOrder + 1]float64{
			0.05418656406430, -0.02911007808948, -0.00848709379851, -0.00851165645469, -0.00834990904936,
			0.02245293253339, -0.02596338512915, 0.01624864962975, -0.00240879051584, 0.00674613682247,
			-0.00187763777362,
		},
		A: [YuleOrder + 1]float64{
			1, -3.47845948550071, 6.36317777566148, -8.54751527471874, 9.47693607801280,
			-8.81498681370155, 6.85401540936998, -4.39470996079559, 2.19611684890774, -0.75104302451432,
			0.13149317958808,
		},
	},
	48000: {
		B: [YuleOrder + 1]float64{
			0.03857599435200, -0.02160367184185, -0.00123395316851, -0.00009291677959, -0.01655260341619,
			0.02161526843274, -0.02074045215285, 0.00594298065125, 0.00306428023191, 0.00012025322027,
			0.00288463683916,
		},
		A: [YuleOrder + 1]float64{
			1, -3.84664617118067, 7.81501653005538, -11.34170355132042, 13.05504219327545,
			-12.28759895145294, 9.48293806319790, -5.87257861775999, 2.75465861874613, -0.86984376593551,
			0.13919314567432,
		},
	},
	56000: {
		B: [YuleOrder + 1]float64{
			0.028978178033121988, -0.049686548070706126, 0.045124334550331824, -0.030446176756425063,
			0.006460465146666447, 0.007097865723568832, -0.004702584592018131, -0.006978694538729856,
			0.01063900569926801, -0.006231192576404587, 0.0031385895079711615,
		},
		A: [YuleOrder + 1]float64{
			1, -4.973739121796802, 12.520801353977808, -21.187011042618284, 26.691135040462484, -26.033006057970784,
			19.803989396776053, -11.538321795805226, 4.893719157030436, -1.35398065004759, 0.1844837665505917,
		},
	},
	64000: {
		B: [YuleOrder + 1]float64{
			0.023747042927741005, -0.065357600516431, 0.09524005417579495, -0.09885022664913036,
			0.07862114182702194, -0.05643997325062051, 0.045150350486679425, -0.03881935657059468,
			0.026491899780082238, -0.012094029617366393, 0.0033957839346797345,
		},
		A: [YuleOrder + 1]float64{
			1, -5.821781233490386, 16.669006190828387, -31.010831342061383, 41.497953280314775,
			-41.63469759290581, 31.619034857644017, -17.885606818044568, 7.182860689515745,
			-1.8412405433241152, 0.22788376563765372,
		},
	},
	88200: {
		B: [YuleOrder + 1]float64{
			0.017403523924803644, -0.08900279436722369, 0.22624354283994108, -0.37941411979909373,
			0.4689159017871601, -0.4516079831449047, 0.3462442795986446, -0.2084800767796362,
			0.09338763122869884, -0.027871706031022073, 0.004243508676639123,
		},
		A: [YuleOrder + 1]float64{
			1, -7.370505913939205, 25.576922735777742, -55.041214482558296, 81.31460228442934,
			-86.10695535877133, 66.12548188988455, -36.322611709561365, 13.640956513926854,
			-3.1584626612261193, 0.3419335277353102,
		},
	},
	96000: {
		B: [YuleOrder + 1]float64{
			0.016464964215407704, -0.09301116703331043, 0.2574950837994341, -0.4627705454709498,
			0.6017323610421477, -0.595868653192219, 0.45739233797577306, -0.2686601691760805,
			0.11495618304252342, -0.03220455067933802, 0.004502438601639251,
		},
		A: [YuleOrder + 1]float64{
			1, -7.677900074031014, 27.551751687812374, -60.85351858334114, 91.58523256767428,
			-98.0830695399516, 75.64293111773674, -41.44647823979494, 15.426667071197627,
			-3.518634686212079, 0.3730859762498785,
		},
	},
	112000: {
		B: [YuleOrder + 1]float64{
			0.015175407509914364, -0.09870434356939532, 0.307987860790829, -0.6092047820115981, 0.8488866676044553,
			-0.8736137003727072, 0.6739147894039207, -0.38483981792276706, 0.15543668137460426,
			-0.04002631341956488, 0.004994270757345181,
		},
		A: [YuleOrder + 1]float64{
			1, -8.147932183320867, 30.707529871099567, -70.48672558108412, 109.10526514377432, -118.95405669145923,
			92.47213440644775, -50.58565945871973, 18.625770429078404, -4.165825680334309, 0.42951573492782746,
		},
	},
	128000: {
		B: [YuleOrder + 1]float64{
			0.014365518761039918, -0.10234688756787716, 0.34481561716704556, -0.724972448633335, 1.0555553017320831,
			-1.114098947889955, 0.864265007205, -0.4866930820040922, 0.1902899875730282, -0.04661049646176971,
			0.005432335320282922,
		},
		A: [YuleOrder + 1]float64{
			1, -8.475916925212752, 33.00969324480882, -77.78049978278621, 122.77563359764999, -135.62382606444072,
			106.14793736520565, -58.10363090081243, 21.280545307714636, -4.707303035592521, 0.4773717268938826,
		},
	},
	144000: {
		B: [YuleOrder + 1]float64{
			0.013816198583424874, -0.10481140542521993, 0.3722303957891847, -0.816097212317862, 1.2248194161294619,
			-1.3162826689086662, 1.0265373742991855, -0.5737827426177289, 0.21993670399138715, -0.05218620180256402,
			0.005820762848958679,
		},
		A: [YuleOrder + 1]float64{
			1, -8.714789332907237, 34.7400683708871, -83.41228406545707, 133.57077678676927, -149.03064324844837,
			117.3087565795447, -64.31097459300804, 23.494197097821058, -5.163356085700142, 0.5182499671531702,
		},
	},
	176400: {
		B: [YuleOrder + 1]float64{
			0.013121826319732122, -0.10785136427485968, 0.40967486132343434, -0.947688935805523,
			1.4793651478256857, -1.6291154203378668, 1.2821306313042051, -0.7121766655942173,
			0.2672030811724341, -0.06114252503304936, 0.0064794513755971825,
		},
		A: [YuleOrder + 1]float64{
			1, -9.037676971030537, 37.15454955937824, -91.4921807420701, 149.43495980971238,
			-169.1414779591018, 134.34638127192065, -73.93239216567187, 26.974163890231964,
			-5.891077308654346, 0.5847508253395716,
		},
	},
	192000: {
		B: [YuleOrder + 1]float64{
			0.012901082350972959, -0.10877976988897722, 0.4221670822847487, -0.9935494621737053,
			1.570954863420037, -1.7443475245330726, 1.3778358920176443, -0.7645695803117281,
			0.28525027748207865, -0.0646091839199358, 0.0067463621612680515,
		},
		A: [YuleOrder + 1]float64{
			1, -9.145538946069438, 37.98149127002093, -94.32148490739436, 155.09984996824386,
			-176.44792303494236, 140.63225279495754, -77.53242506388571, 28.29412686927526,
			-6.1711565002602375, 0.6108076425928858,
		},
	},
}

// High-pass cutoff in Hz. Low rates use a lower cutoff to keep the stage clear of the equal-loudness dip.
func butterCutoff(sampleRate int) float64 {
	switch {
	case sampleRate <= 8000:
		return 100
	case sampleRate <= 11025:
		return 105
	case sampleRate <= 12000:
		return 110
	case sampleRate <= 16000:
		return 130
	case sampleRate <= 24000:
		return 135
	default:
		return 150
	}
}

// Second order Butterworth high-pass, bilinear transform with prewarping.
func butterworthHighPass(sampleRate int, cutoff float64) Biquad {
	fs := float64(sampleRate)
	Q := 1 / math.Sqrt2 //nolint:gocritic // filter math notation

	K := math.Tan(math.Pi * cutoff / fs) //nolint:gocritic // filter math notation

	a0 := 1 + K/Q + K*K

	return Biquad{
		B0: 1 / a0,
		B1: -2 / a0,
		B2: 1 / a0,
		A1: 2 * (K*K - 1) / a0,
		A2: (1 - K/Q + K*K) / a0,
	}
}

//nolint:gochecknoglobals // memoized read-only table
var coefficientSets = sync.OnceValue(func() map[int]*Coefficients {
	sets := make(map[int]*Coefficients, len(yuleTables))

	for rate, yule := range yuleTables {
		cutoff := butterCutoff(rate)
		sets[rate] = &Coefficients{
			SampleRate: rate,
			CutoffHz:   cutoff,
			Yule:       yule,
			Butter:     butterworthHighPass(rate, cutoff),
		}
	}

	return sets
})

// For returns the coefficient set for the given sample rate. The returned value must not be modified.
func For(sampleRate int) (*Coefficients, error) {
	coeffs, ok := coefficientSets()[sampleRate]
	if !ok {
		return nil, fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, sampleRate)
	}

	return coeffs, nil
}

// SupportedRates lists the sample rates with a coefficient set, ascending.
func SupportedRates() []int {
	rates := make([]int, 0, len(yuleTables))
	for rate := range coefficientSets() {
		rates = append(rates, rate)
	}

	slices.Sort(rates)

	return rates
}

// Nearest returns the supported rate closest to sampleRate. Ties go to the higher rate.
func Nearest(sampleRate int) int {
	rates := SupportedRates()
	best := rates[0]

	for _, rate := range rates[1:] {
		if absInt(rate-sampleRate) <= absInt(best-sampleRate) {
			best = rate
		}
	}

	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
