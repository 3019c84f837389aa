package risk

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/hr-monitor/internal/model"
)

const (
	splitSeed     = 42
	testFraction  = 0.2
	regularizeC   = 1.0
	maxIterations = 100
	tolerance     = 1e-8
)

// logisticModel is an L2-regularised logistic regression over standardised
// features. Missing values are imputed with the training mean.
type logisticModel struct {
	features []string
	mean     []float64
	scale    []float64
	coef     []float64 // coef[0] is the intercept
}

func (m *logisticModel) name() string {
	return fmt.Sprintf("LogReg(%df)", len(m.features))
}

func (m *logisticModel) score(employees []model.EmployeeRecord) []float64 {
	out := make([]float64, len(employees))
	for i, e := range employees {
		z := m.coef[0]
		for j, x := range m.row(e) {
			z += m.coef[j+1] * x
		}
		out[i] = sigmoid(z)
	}
	return out
}

// row returns the standardised feature vector for e.
func (m *logisticModel) row(e model.EmployeeRecord) []float64 {
	x := make([]float64, len(m.features))
	for j, col := range m.features {
		v := m.mean[j]
		if p := e.Feature(col); p != nil {
			v = *p
		}
		x[j] = (v - m.mean[j]) / m.scale[j]
	}
	return x
}

// fitLogistic trains on the stratified training split of the labelled rows.
func fitLogistic(ds Dataset) (*logisticModel, error) {
	var labelled []model.EmployeeRecord
	for _, e := range ds.Employees {
		if e.Attrition != nil {
			labelled = append(labelled, e)
		}
	}

	train, err := stratifiedTrain(labelled)
	if err != nil {
		return nil, err
	}

	m := &logisticModel{
		features: append([]string(nil), ds.Features...),
		mean:     make([]float64, len(ds.Features)),
		scale:    make([]float64, len(ds.Features)),
	}
	for j, col := range m.features {
		var xs []float64
		for _, e := range train {
			if p := e.Feature(col); p != nil {
				xs = append(xs, *p)
			}
		}
		m.mean[j], m.scale[j] = 0, 1
		if len(xs) > 0 {
			mean, std := stat.PopMeanStdDev(xs, nil)
			m.mean[j] = mean
			if std > 0 {
				m.scale[j] = std
			}
		}
	}

	xs := make([][]float64, len(train))
	ys := make([]float64, len(train))
	for i, e := range train {
		xs[i] = m.row(e)
		ys[i] = float64(*e.Attrition)
	}

	coef, err := newton(xs, ys)
	if err != nil {
		return nil, err
	}
	m.coef = coef
	return m, nil
}

// stratifiedTrain returns the training portion of an 80/20 split that keeps
// the class ratio. Both classes need at least two members.
func stratifiedTrain(rows []model.EmployeeRecord) ([]model.EmployeeRecord, error) {
	byClass := map[int][]int{}
	for i, e := range rows {
		byClass[*e.Attrition] = append(byClass[*e.Attrition], i)
	}
	if len(byClass[0]) < 2 || len(byClass[1]) < 2 {
		return nil, eris.Errorf("risk: need at least two rows of each attrition class (got %d leavers, %d stayers)",
			len(byClass[1]), len(byClass[0]))
	}

	rng := rand.New(rand.NewPCG(splitSeed, 0))
	var train []model.EmployeeRecord
	for _, class := range []int{0, 1} {
		idx := byClass[class]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		if nTest < 1 {
			nTest = 1
		}
		for _, i := range idx[nTest:] {
			train = append(train, rows[i])
		}
	}
	return train, nil
}

// newton minimises 0.5*|w|^2 + C*sum(logloss) with Newton steps. The
// intercept is not penalised.
func newton(xs [][]float64, ys []float64) ([]float64, error) {
	d := 1
	if len(xs) > 0 {
		d += len(xs[0])
	}
	beta := make([]float64, d)

	for iter := 0; iter < maxIterations; iter++ {
		grad := make([]float64, d)
		hess := mat.NewDense(d, d, nil)
		for k := 1; k < d; k++ {
			grad[k] = beta[k]
			hess.Set(k, k, 1)
		}
		hess.Set(0, 0, 1e-8)

		for i, x := range xs {
			z := beta[0]
			for j, v := range x {
				z += beta[j+1] * v
			}
			p := sigmoid(z)
			w := regularizeC * p * (1 - p)
			r := regularizeC * (p - ys[i])

			aug := append([]float64{1}, x...)
			for a := 0; a < d; a++ {
				grad[a] += r * aug[a]
				for b := 0; b < d; b++ {
					hess.Set(a, b, hess.At(a, b)+w*aug[a]*aug[b])
				}
			}
		}

		var step mat.VecDense
		if err := step.SolveVec(hess, mat.NewVecDense(d, grad)); err != nil {
			// An ill-conditioned Hessian still yields a usable step.
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return nil, eris.Wrap(err, "risk: solve newton step")
			}
		}
		var norm float64
		for k := 0; k < d; k++ {
			beta[k] -= step.AtVec(k)
			norm += step.AtVec(k) * step.AtVec(k)
		}
		if math.Sqrt(norm) < tolerance {
			break
		}
	}

	for _, b := range beta {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, eris.New("risk: logistic fit diverged")
		}
	}
	return beta, nil
}
