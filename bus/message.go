package bus

import "fmt"

// ActorKind 参与者类型
type ActorKind uint8

const (
	ActorNone     ActorKind = iota // 空，用于匹配模式中表示任意
	ActorPop                       // 居民
	ActorFirm                      // 企业
	ActorMarket                    // 撮合方
	ActorSystem                    // 模拟任务协调者
	ActorEveryone                  // 广播
)

var actorKindNames = [...]string{"None", "Pop", "Firm", "Market", "System", "Everyone"}

func (k ActorKind) String() string {
	if int(k) < len(actorKindNames) {
		return actorKindNames[k]
	}
	return fmt.Sprintf("ActorKind(%d)", k)
}

// ActorInfo 参与者标识
type ActorInfo struct {
	Kind ActorKind
	ID   int32
}

func Pop(id int32) ActorInfo    { return ActorInfo{Kind: ActorPop, ID: id} }
func Firm(id int32) ActorInfo   { return ActorInfo{Kind: ActorFirm, ID: id} }
func Market(id int32) ActorInfo { return ActorInfo{Kind: ActorMarket, ID: id} }

var (
	System   = ActorInfo{Kind: ActorSystem}
	Everyone = ActorInfo{Kind: ActorEveryone}
)

// IsZero 是否为空标识
func (a ActorInfo) IsZero() bool {
	return a.Kind == ActorNone
}

func (a ActorInfo) String() string {
	if a.Kind == ActorEveryone || a.Kind == ActorSystem {
		return a.Kind.String()
	}
	return fmt.Sprintf("%v(%d)", a.Kind, a.ID)
}

// MessageKind 消息类型（封闭集合）
type MessageKind uint8

const (
	KindNone MessageKind = iota
	FindClass
	FoundClass
	ClassNotFound
	FindProduct
	FoundProduct
	ProductNotFound
	FindWant
	FoundWant
	CheckItem
	InStock
	NotInStock
	BuyOffer
	BuyOfferFollowup
	SellerAcceptOfferAsIs
	OfferAcceptedWithChange
	ChangeFollowup
	RejectOffer
	RejectPurchase
	CloseDeal
	SellOrder
	SendProduct
	SendWant
	FirmToEmployee
	EmployeeToFirm
	WantSplash
	StartDay
	Finished
	AllFinished
	Shutdown
)

var messageKindNames = [...]string{
	"None",
	"FindClass", "FoundClass", "ClassNotFound",
	"FindProduct", "FoundProduct", "ProductNotFound",
	"FindWant", "FoundWant",
	"CheckItem", "InStock", "NotInStock",
	"BuyOffer", "BuyOfferFollowup",
	"SellerAcceptOfferAsIs", "OfferAcceptedWithChange", "ChangeFollowup",
	"RejectOffer", "RejectPurchase", "CloseDeal",
	"SellOrder", "SendProduct", "SendWant",
	"FirmToEmployee", "EmployeeToFirm",
	"WantSplash", "StartDay", "Finished", "AllFinished", "Shutdown",
}

func (k MessageKind) String() string {
	if int(k) < len(messageKindNames) {
		return messageKindNames[k]
	}
	return fmt.Sprintf("MessageKind(%d)", k)
}

// FirmAction 企业与雇员之间的动作
type FirmAction uint8

const (
	ActionNone FirmAction = iota
	RequestTime
	RequestItem
	RequestEverything
	RequestSent
	WorkDayEnded
)

var firmActionNames = [...]string{"None", "RequestTime", "RequestItem", "RequestEverything", "RequestSent", "WorkDayEnded"}

func (a FirmAction) String() string {
	if int(a) < len(firmActionNames) {
		return firmActionNames[a]
	}
	return fmt.Sprintf("FirmAction(%d)", a)
}

// OfferResult 价格/报价评估结果
type OfferResult uint8

const (
	OfferNone OfferResult = iota
	Steal
	Cheap
	Reasonable
	Expensive
	TooExpensive
	OutOfStock
	NotInMarket
	Rejected
)

var offerResultNames = [...]string{"None", "Steal", "Cheap", "Reasonable", "Expensive", "TooExpensive", "OutOfStock", "NotInMarket", "Rejected"}

func (r OfferResult) String() string {
	if int(r) < len(offerResultNames) {
		return offerResultNames[r]
	}
	return fmt.Sprintf("OfferResult(%d)", r)
}

// ActorMessage 总线上的消息
// 说明：不可变值类型，按值复制；各字段的含义随Kind不同：
//   - Product：商品ID（FindClass/FoundClass中为类别ID对应的具体商品，FindWant中为欲望ID）
//   - Quantity：数量（CheckItem中为买方可接受的最低数量）
//   - Price：单价（InStock、SellOrder）或报价总价值（BuyOffer）
//   - Followups：紧随其后的跟随消息数量（BuyOffer、OfferAcceptedWithChange）
//   - Target：撮合结果中的卖方
type ActorMessage struct {
	Kind      MessageKind
	Sender    ActorInfo
	Recipient ActorInfo
	Deal      string // 谈判ID

	Product   int32
	Class     int32
	Quantity  float64
	Price     float64
	Followups int
	Target    ActorInfo
	Action    FirmAction
	Reason    OfferResult
}

// New 创建消息
func New(kind MessageKind, sender, recipient ActorInfo) ActorMessage {
	return ActorMessage{Kind: kind, Sender: sender, Recipient: recipient}
}

// Reply 以当前消息为基础构造回复：交换收发方，保留谈判ID与商品
func (m ActorMessage) Reply(kind MessageKind) ActorMessage {
	return ActorMessage{
		Kind:      kind,
		Sender:    m.Recipient,
		Recipient: m.Sender,
		Deal:      m.Deal,
		Product:   m.Product,
		Class:     m.Class,
	}
}

// AddressedTo 消息是否发给self
// 说明：广播消息发给除发送者外的所有人
func (m ActorMessage) AddressedTo(self ActorInfo) bool {
	if m.Recipient == self {
		return true
	}
	return m.Recipient.Kind == ActorEveryone && m.Sender != self
}

func (m ActorMessage) String() string {
	return fmt.Sprintf("%v{%v->%v product=%d qty=%g price=%g followups=%d action=%v reason=%v}",
		m.Kind, m.Sender, m.Recipient, m.Product, m.Quantity, m.Price, m.Followups, m.Action, m.Reason)
}

// Pattern 等待消息时的匹配模式
type Pattern struct {
	Kind   MessageKind
	Sender ActorInfo // 为空表示任意发送者
	Deal   string    // 为空表示任意谈判
}

// Expect 构造匹配模式
func Expect(kind MessageKind) Pattern {
	return Pattern{Kind: kind}
}

// From 限定发送者
func (p Pattern) From(sender ActorInfo) Pattern {
	p.Sender = sender
	return p
}

// InDeal 限定谈判ID
func (p Pattern) InDeal(deal string) Pattern {
	p.Deal = deal
	return p
}

// Matches 消息是否匹配：类型相同、发给self，且满足发送者与谈判ID限定
func (p Pattern) Matches(m ActorMessage, self ActorInfo) bool {
	if m.Kind != p.Kind || !m.AddressedTo(self) {
		return false
	}
	if !p.Sender.IsZero() && m.Sender != p.Sender {
		return false
	}
	return p.Deal == "" || m.Deal == p.Deal
}

func (p Pattern) String() string {
	s := p.Kind.String()
	if !p.Sender.IsZero() {
		s += "@" + p.Sender.String()
	}
	return s
}

// MatchAny 是否匹配任一模式
func MatchAny(m ActorMessage, self ActorInfo, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.Matches(m, self) {
			return true
		}
	}
	return false
}
