package ecosim_test

import (
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
)

const (
	wantNutrition int32 = 1
	wantWarmth    int32 = 2

	classFood int32 = 10

	bread    int32 = 1
	rice     int32 = 2
	coat     int32 = 3
	firewood int32 = 4
	ash      int32 = 5

	procBurn  int32 = 100
	procCoatF int32 = 101
)

func ptr[T any](v T) *T { return &v }

// newCatalog 测试用目录
func newCatalog() *ecosim.Catalog {
	c := ecosim.NewCatalog()
	for _, w := range []*ecosim.Want{
		{ID: wantNutrition, Name: "nutrition"},
		{ID: wantWarmth, Name: "warmth", Decay: 0.5},
	} {
		if err := c.AddWant(w); err != nil {
			panic(err)
		}
	}
	for _, p := range []*ecosim.Product{
		{ID: bread, Name: "bread", Class: ptr(classFood), Wants: map[int32]float64{wantNutrition: 1}},
		{ID: rice, Name: "rice", Fractional: true, Class: ptr(classFood)},
		{ID: coat, Name: "coat", FailureChance: 0.25, FailureProcess: ptr(procCoatF)},
		{ID: firewood, Name: "firewood", Fractional: true},
		{ID: ash, Name: "ash", Fractional: true},
	} {
		if err := c.AddProduct(p); err != nil {
			panic(err)
		}
	}
	for _, p := range []*ecosim.Process{
		{ID: procBurn, Name: "burn", Tags: ecosim.TagConsumption | ecosim.TagSplash, Parts: []ecosim.ProcessPart{
			{Item: ecosim.ProductItem(firewood), Amount: 1, Role: ecosim.PartInput},
			{Item: ecosim.WantItem(wantWarmth), Amount: 2, Role: ecosim.PartOutput},
		}},
		{ID: procCoatF, Name: "coat failure", Tags: ecosim.TagFailure, Parts: []ecosim.ProcessPart{
			{Item: ecosim.ProductItem(coat), Amount: 1, Role: ecosim.PartInput},
			{Item: ecosim.ProductItem(ash), Amount: 1, Role: ecosim.PartOutput},
		}},
	} {
		if err := c.AddProcess(p); err != nil {
			panic(err)
		}
	}
	if err := c.Link(); err != nil {
		panic(err)
	}
	return c
}

func newMarket() *ecosim.Market {
	m := ecosim.NewMarket()
	m.SetProduct(bread, ecosim.ProductInfo{Price: 3, Salability: 0.5})
	m.SetProduct(rice, ecosim.ProductInfo{Price: 1, Salability: 0.7})
	m.SetProduct(coat, ecosim.ProductInfo{Price: 10, Salability: 0.2})
	m.SetProduct(firewood, ecosim.ProductInfo{Price: 0.5, Salability: 0.9, IsCurrency: true})
	return m
}

func singleton(item ecosim.Item, tier int, amount float64) ecosim.Desire {
	return ecosim.Desire{Item: item, StartTier: tier, Amount: amount}
}

func ladder(item ecosim.Item, start, end, step int, amount float64) ecosim.Desire {
	return ecosim.Desire{Item: item, StartTier: start, EndTier: ptr(end), Step: step, Amount: amount}
}
