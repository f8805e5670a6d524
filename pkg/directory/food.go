package directory

// FoodKind classifies a favourite food.
type FoodKind string

const (
	FoodFruit        FoodKind = "fruit"
	FoodVegetable    FoodKind = "vegetable"
	FoodUnclassified FoodKind = "unclassified"
)

var foodKinds = map[string]FoodKind{
	"orange":     FoodFruit,
	"strawberry": FoodFruit,
	"banana":     FoodFruit,
	"apple":      FoodFruit,
	"beetroot":   FoodVegetable,
	"cucumber":   FoodVegetable,
	"celery":     FoodVegetable,
	"carrot":     FoodVegetable,
}

// ClassifyFood returns the kind of a food name. Matching is exact.
func ClassifyFood(name string) FoodKind {
	if kind, ok := foodKinds[name]; ok {
		return kind
	}
	return FoodUnclassified
}

// GroupFoods splits foods by kind. Order inside each group follows foods.
func GroupFoods(foods []string) map[FoodKind][]string {
	groups := make(map[FoodKind][]string)
	for _, food := range foods {
		kind := ClassifyFood(food)
		groups[kind] = append(groups[kind], food)
	}
	return groups
}
