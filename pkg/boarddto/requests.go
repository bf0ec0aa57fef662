package boarddto

type ClickRequest struct {
	Square string `json:"square"`
}

type JumpRequest struct {
	Ply int `json:"ply"`
}

type PromotionRequest struct {
	Piece string `json:"piece"`
}
