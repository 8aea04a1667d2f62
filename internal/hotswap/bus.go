package hotswap

import (
	"log"
	"sync"
)

// NotificationBus はイベントを購読者へ配信するプロセス内のpub/subバス
// 配信は購読者ごとに失敗境界で分離され、ある購読者の失敗が他の購読者に影響しない
type NotificationBus struct {
	subscribers map[Subscriber]struct{}
	closed      bool
	mu          sync.RWMutex
}

// NewNotificationBus は新しいNotificationBusを作成する
func NewNotificationBus() *NotificationBus {
	return &NotificationBus{
		subscribers: make(map[Subscriber]struct{}),
	}
}

// Subscribe は購読者を追加する
// 同じ購読者の再登録は追加の効果を持たない（セット意味論）
func (b *NotificationBus) Subscribe(subscriber Subscriber) {
	if subscriber == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.subscribers[subscriber] = struct{}{}
}

// Unsubscribe は購読者を削除する
// 未登録の購読者に対しては何もしない
func (b *NotificationBus) Unsubscribe(subscriber Subscriber) {
	if subscriber == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, subscriber)
}

// Publish はイベントを現在の全購読者へ配信する
// 配信中の購読・解除が走査を壊さないよう、発行時点のスナップショットに対して配信する
func (b *NotificationBus) Publish(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]Subscriber, 0, len(b.subscribers))
	for subscriber := range b.subscribers {
		snapshot = append(snapshot, subscriber)
	}
	b.mu.RUnlock()

	for _, subscriber := range snapshot {
		b.deliver(subscriber, event)
	}
}

// SubscriberCount は現在の購読者数を返す
func (b *NotificationBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Teardown は全購読者を解除し、以降の一切の配信を停止する
func (b *NotificationBus) Teardown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = make(map[Subscriber]struct{})
}

// deliver は1購読者への配信を失敗境界で包んで実行する
// 購読者の panic は回収・記録され、発行側へは伝播しない
func (b *NotificationBus) deliver(subscriber Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("購読者への配信中に失敗しました (イベント %s): %v", event.Type, r)
		}
	}()

	subscriber.Notify(event)
}
