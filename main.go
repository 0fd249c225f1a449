package main

import (
	"flag"
	"fmt"

	"github.com/pdsujnow/CDAE/cdae"
	"github.com/pdsujnow/CDAE/data"
	"github.com/pdsujnow/CDAE/loss"
)

func main() {
	dataPath := flag.String("data", "ratings.dat", "ratings file with user item rating triples")
	lossName := flag.String("loss", "CrossEntropy", "loss function: Square, Logistic, Log, Hinge, SquaredHinge or CrossEntropy")
	hidden := flag.Int("hidden", 32, "hidden layer width")
	epochs := flag.Int("epochs", 30, "training epochs")
	lr := flag.Float64("lr", 0.1, "learning rate")
	decay := flag.Float64("decay", 1, "per-epoch learning rate multiplier")
	l2 := flag.Float64("l2", 0.001, "L2 regularization strength")
	corruption := flag.Float64("corruption", 0.2, "input dropout probability")
	negatives := flag.Int("negatives", 5, "negative samples per consumed item")
	top := flag.Int("top", 10, "recommendations to print per user")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	kind, err := loss.ParseKind(*lossName)
	if err != nil {
		fmt.Println("Error parsing loss:", err)
		return
	}
	r, err := data.LoadRatingsFile(*dataPath)
	if err != nil {
		fmt.Println("Error loading ratings:", err)
		return
	}
	shape := r.Shape()
	users, items := shape[0], shape[1]
	fmt.Println(fmt.Sprintf("Loaded %d users x %d items", users, items))

	model, err := cdae.New(users, items, cdae.Params{
		Hidden:     *hidden,
		Lr:         *lr,
		Decay:      *decay,
		L2:         *l2,
		Corruption: *corruption,
		Negatives:  *negatives,
		Epochs:     *epochs,
		Loss:       kind,
		Seed:       *seed,
		Verbose:    true,
	})
	if err != nil {
		fmt.Println("Error building model:", err)
		return
	}
	fmt.Print(model)

	if err := model.Fit(r); err != nil {
		fmt.Println("Error training:", err)
		return
	}
	mean, err := model.MeanLoss()
	if err != nil {
		fmt.Println("Error evaluating:", err)
		return
	}
	fmt.Println(fmt.Sprintf("Mean loss = %.4f", mean))

	for u := 0; u < users && u < 3; u++ {
		recs, err := model.Rank(u, *top)
		if err != nil {
			fmt.Println("Error ranking:", err)
			return
		}
		fmt.Println(fmt.Sprintf("User %d: recommended items %v", u, recs))
	}
}
