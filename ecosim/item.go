package ecosim

import "fmt"

// ItemKind 需求指向的物品类型
type ItemKind uint8

const (
	ItemProduct ItemKind = iota + 1 // 具体商品
	ItemClass                       // 商品类别
	ItemWant                        // 抽象欲望
)

func (k ItemKind) String() string {
	switch k {
	case ItemProduct:
		return "Product"
	case ItemClass:
		return "Class"
	case ItemWant:
		return "Want"
	default:
		return "None"
	}
}

// Item 需求或流程部件所指向的物品
type Item struct {
	Kind ItemKind
	ID   int32
}

func ProductItem(id int32) Item { return Item{Kind: ItemProduct, ID: id} }
func ClassItem(id int32) Item   { return Item{Kind: ItemClass, ID: id} }
func WantItem(id int32) Item    { return Item{Kind: ItemWant, ID: id} }

func (i Item) String() string {
	return fmt.Sprintf("%v(%d)", i.Kind, i.ID)
}
