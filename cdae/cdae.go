// Package cdae implements a collaborative denoising auto-encoder for
// implicit feedback: a single hidden layer shared across items, one extra
// input node per user, and a pluggable pointwise loss on the reconstruction
// scores.
package cdae

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/pdsujnow/CDAE/loss"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// Params configures a Model. Hidden, Lr and Epochs must be set; the other
// fields default as noted.
type Params struct {
	Hidden     int     // hidden layer width
	Lr         float64 // learning rate
	Decay      float64 // per-epoch learning rate multiplier, default 1
	L2         float64 // weight regularization strength
	Corruption float64 // input dropout probability, in [0, 1)
	Negatives  int     // unconsumed items sampled per consumed one
	Epochs     int
	Loss       loss.Kind
	Activation ActivationFunction // default Sigmoid
	Seed       int64
	Verbose    bool
}

// Model is a denoising auto-encoder over a fixed users x items interaction
// matrix.
type Model struct {
	users, items int
	hidden       int

	w  *mat.Dense // items x hidden, input side
	wp *mat.Dense // items x hidden, output side
	v  *mat.Dense // users x hidden, per-user input node
	b  []float64  // hidden bias
	bp []float64  // per-item output bias

	activation ActivationFunction
	kind       loss.Kind
	loss       loss.Function
	lr         float64
	params     Params
	rng        *rand.Rand

	data []float64 // binarized interactions, set by Fit
}

// New builds an untrained model for a users x items interaction matrix.
func New(users, items int, params Params) (*Model, error) {
	if users <= 0 || items <= 0 {
		return nil, errors.New("invalid interaction matrix size")
	}
	if params.Hidden <= 0 {
		return nil, errors.New("invalid hidden size")
	}
	if params.Lr <= 0 {
		return nil, errors.New("invalid learning rate")
	}
	if params.Epochs <= 0 {
		return nil, errors.New("invalid epoch count")
	}
	if params.Corruption < 0 || params.Corruption >= 1 {
		return nil, errors.New("invalid corruption level")
	}
	if params.Negatives < 0 {
		return nil, errors.New("invalid negative sample count")
	}
	if params.Decay == 0 {
		params.Decay = 1
	} else if params.Decay < 0 || params.Decay > 1 {
		return nil, errors.New("invalid learning rate decay")
	}
	if params.Activation == nil {
		params.Activation = Sigmoid{}
	}

	m := &Model{
		users:      users,
		items:      items,
		hidden:     params.Hidden,
		w:          mat.NewDense(items, params.Hidden, nil),
		wp:         mat.NewDense(items, params.Hidden, nil),
		v:          mat.NewDense(users, params.Hidden, nil),
		b:          make([]float64, params.Hidden),
		bp:         make([]float64, items),
		activation: params.Activation,
		kind:       params.Loss,
		loss:       loss.New(params.Loss),
		lr:         params.Lr,
		params:     params,
		rng:        rand.New(rand.NewSource(params.Seed)),
	}
	for i := 0; i < items; i++ {
		wRow := m.w.RawRowView(i)
		wpRow := m.wp.RawRowView(i)
		for j := range wRow {
			wRow[j] = m.xavier(items, params.Hidden)
			wpRow[j] = m.xavier(params.Hidden, items)
		}
		m.bp[i] = m.xavier(params.Hidden, items)
	}
	for u := 0; u < users; u++ {
		vRow := m.v.RawRowView(u)
		for j := range vRow {
			vRow[j] = m.xavier(items, params.Hidden)
		}
	}
	for j := range m.b {
		m.b[j] = m.xavier(items, params.Hidden)
	}
	return m, nil
}

func (m *Model) xavier(numInputs, numOutputs int) float64 {
	limit := math.Sqrt(6.0 / float64(numInputs+numOutputs))
	return 2*m.rng.Float64()*limit - limit
}

// Fit trains the model with plain SGD: every epoch visits users in random
// order, corrupts each user's item set, reconstructs scores for the
// consumed items plus sampled negatives and descends the configured loss.
// The learning rate decays by Params.Decay after each epoch. The
// interaction tensor must be users x items, float64 and 0/1 valued, with
// 1 marking a consumed item.
func (m *Model) Fit(r *tensor.Dense) error {
	shape := r.Shape()
	if len(shape) != 2 || shape[0] != m.users || shape[1] != m.items {
		return fmt.Errorf("interaction tensor is %v, want (%d, %d)", shape, m.users, m.items)
	}
	data, ok := r.Data().([]float64)
	if !ok {
		return errors.New("interaction tensor must hold float64")
	}
	for _, v := range data {
		if v != 0 && v != 1 {
			return fmt.Errorf("interaction tensor must be 0/1 valued, got %g", v)
		}
	}
	m.data = data

	for e := 0; e < m.params.Epochs; e++ {
		total, count := 0.0, 0
		for _, u := range m.rng.Perm(m.users) {
			sum, n := m.trainUser(u)
			total += sum
			count += n
		}
		m.lr *= m.params.Decay
		if m.params.Verbose && count > 0 {
			fmt.Println(fmt.Sprintf("Loss SGD %d = %.4f", e, total/float64(count)))
		}
	}
	return nil
}

func (m *Model) trainUser(u int) (float64, int) {
	row := m.data[u*m.items : (u+1)*m.items]
	pos := positives(row)
	if len(pos) == 0 {
		return 0, 0
	}

	kept, scale := m.corrupt(pos)
	z := m.hiddenInput(u, kept, scale)
	h := make([]float64, m.hidden)
	for j, x := range z {
		h[j] = m.activation.Activate(x)
	}

	posTarget, negTarget := m.targets()
	dz := make([]float64, m.hidden)
	total, count := 0.0, 0
	for _, i := range pos {
		total += m.step(i, posTarget, h, dz)
		count++
	}
	if m.params.Negatives > 0 && len(pos) < m.items {
		for s := 0; s < m.params.Negatives*len(pos); s++ {
			j := m.rng.Intn(m.items)
			for row[j] > 0 {
				j = m.rng.Intn(m.items)
			}
			total += m.step(j, negTarget, h, dz)
			count++
		}
	}

	// push the accumulated score gradients through the activation, then
	// down to the user node, the hidden bias and the surviving input
	// weights
	vRow := m.v.RawRowView(u)
	for j := range dz {
		dz[j] *= m.activation.Derivative(z[j])
		vRow[j] -= m.lr * (dz[j] + m.params.L2*vRow[j])
		m.b[j] -= m.lr * dz[j]
	}
	for _, i := range kept {
		wRow := m.w.RawRowView(i)
		for j := range wRow {
			wRow[j] -= m.lr * (scale*dz[j] + m.params.L2*wRow[j])
		}
	}
	return total, count
}

// corrupt drops consumed items with probability Params.Corruption,
// scaling the survivors so the hidden input keeps its expectation.
func (m *Model) corrupt(pos []int) (kept []int, scale float64) {
	q := m.params.Corruption
	if q == 0 {
		return pos, 1
	}
	kept = make([]int, 0, len(pos))
	for _, i := range pos {
		if m.rng.Float64() >= q {
			kept = append(kept, i)
		}
	}
	return kept, 1 / (1 - q)
}

// step scores one item against the current hidden state, descends the
// output-side weights and accumulates the gradient flowing back into dz.
func (m *Model) step(item int, target float64, h, dz []float64) float64 {
	wpRow := m.wp.RawRowView(item)
	a := floats.Dot(wpRow, h) + m.bp[item]
	val := m.scoreLoss(a, target)
	g := m.scoreGrad(a, target)
	for j, w := range wpRow {
		dz[j] += g * w
		wpRow[j] -= m.lr * (g*h[j] + m.params.L2*w)
	}
	m.bp[item] -= m.lr * g
	return val
}

func (m *Model) hiddenInput(u int, kept []int, scale float64) []float64 {
	z := make([]float64, m.hidden)
	for _, i := range kept {
		floats.AddScaled(z, scale, m.w.RawRowView(i))
	}
	floats.Add(z, m.v.RawRowView(u))
	floats.Add(z, m.b)
	return z
}

func (m *Model) forward(u int) []float64 {
	row := m.data[u*m.items : (u+1)*m.items]
	z := m.hiddenInput(u, positives(row), 1)
	h := make([]float64, m.hidden)
	for j, x := range z {
		h[j] = m.activation.Activate(x)
	}
	return h
}

// targets returns the labels fed to the loss: margin losses want the -1/+1
// coding, the rest work on 0/1.
func (m *Model) targets() (pos, neg float64) {
	switch m.kind {
	case loss.Hinge, loss.SquaredHinge, loss.Log:
		return 1, -1
	}
	return 1, 0
}

// scoreLoss evaluates the configured loss on a raw reconstruction score.
// Logistic is defined on probabilities, so the score goes through a
// sigmoid first; every other kind consumes the score directly.
func (m *Model) scoreLoss(a, target float64) float64 {
	if m.kind == loss.Logistic {
		return m.loss.Evaluate(squash(a), target)
	}
	return m.loss.Evaluate(a, target)
}

func (m *Model) scoreGrad(a, target float64) float64 {
	if m.kind == loss.Logistic {
		p := squash(a)
		return m.loss.Gradient(p, target) * p * (1 - p)
	}
	return m.loss.Gradient(a, target)
}

// squash is a sigmoid pinned away from its boundaries: past |x| ~ 37 the
// exact value rounds to a float64 the logistic loss is not defined on.
func squash(x float64) float64 {
	p := 1 / (1 + math.Exp(-x))
	return math.Min(math.Max(p, 1e-12), 1-1e-12)
}

// Predict returns a score for every item as seen by user u, mapped through
// the loss link, so a CrossEntropy model yields probabilities.
func (m *Model) Predict(u int) ([]float64, error) {
	if m.data == nil {
		return nil, errors.New("model is not fitted")
	}
	if u < 0 || u >= m.users {
		return nil, fmt.Errorf("user %d out of range", u)
	}
	h := m.forward(u)
	out := make([]float64, m.items)
	for i := range out {
		a := floats.Dot(m.wp.RawRowView(i), h) + m.bp[i]
		out[i] = m.loss.Predict(a)
	}
	return out, nil
}

// Rank returns the top n unconsumed items for user u, best first.
func (m *Model) Rank(u, n int) ([]int, error) {
	scores, err := m.Predict(u)
	if err != nil {
		return nil, err
	}
	row := m.data[u*m.items : (u+1)*m.items]
	candidates := make([]int, 0, m.items)
	for i := range scores {
		if row[i] == 0 {
			candidates = append(candidates, i)
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		return scores[candidates[a]] > scores[candidates[b]]
	})
	if n < 0 {
		n = 0
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n], nil
}

// MeanLoss is the mean pointwise loss over every cell of the fitted matrix,
// scoring unconsumed cells against the negative target.
func (m *Model) MeanLoss() (float64, error) {
	if m.data == nil {
		return 0, errors.New("model is not fitted")
	}
	posTarget, negTarget := m.targets()
	losses := make([]float64, 0, m.users*m.items)
	for u := 0; u < m.users; u++ {
		h := m.forward(u)
		row := m.data[u*m.items : (u+1)*m.items]
		for i := range row {
			a := floats.Dot(m.wp.RawRowView(i), h) + m.bp[i]
			target := negTarget
			if row[i] > 0 {
				target = posTarget
			}
			losses = append(losses, m.scoreLoss(a, target))
		}
	}
	return stat.Mean(losses, nil), nil
}

func positives(row []float64) []int {
	idx := make([]int, 0, len(row))
	for i, v := range row {
		if v > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// Debug
func (m *Model) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CDAE %dx%d hidden=%d loss=%s\n", m.users, m.items, m.hidden, m.loss.Name()))
	sb.WriteString(fmt.Sprintf("lr=%g decay=%g l2=%g corruption=%g negatives=%d\n",
		m.lr, m.params.Decay, m.params.L2, m.params.Corruption, m.params.Negatives))
	return sb.String()
}
