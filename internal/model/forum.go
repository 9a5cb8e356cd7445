package model

// ForumPost は forum_posts ツリーに保存される投稿レコード。
// IDはストア側が push 時に採番するため、レコード本体には含めない。
// created_at はISO-8601(RFC3339)形式の文字列として保存する。
type ForumPost struct {
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"created_at"`
	Likes     int       `json:"likes"`
	Comments  []Comment `json:"comments"`
}

// Comment は投稿に埋め込まれるコメントレコード。
// トップレベルのエンティティではなく、ForumPost の comments 配列の要素として保存される。
type Comment struct {
	UserID    string `json:"user_id"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

// PostRef はストアが採番した投稿の参照キー。
// Firebase RTDB の push レスポンス（{"name": "<key>"}）と同じ形で返す。
type PostRef struct {
	Name string `json:"name"`
}
