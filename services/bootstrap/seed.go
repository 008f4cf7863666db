package bootstrap

import (
	"tsmarket/services/catalog"
	"tsmarket/services/reward"
	"tsmarket/services/topup"
	"tsmarket/services/wheel"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	category string
	req      catalog.ProductRequest
}

var seedCategories = []catalog.CategoryRequest{
	{Name: "Gaming", Slug: "gaming"},
	{Name: "Clothing", Slug: "clothing"},
	{Name: "Accessories", Slug: "accessories"},
	{Name: "Collectibles", Slug: "collectibles"},
}

func coins(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var seedProducts = []seedProduct{
	{"gaming", catalog.ProductRequest{Name: "Dragon Gaming Headset", Description: "Premium RGB gaming headset with surround sound", Price: coins(1500), XPReward: 150, Stock: 50,
		ImageURL: "https://images.unsplash.com/photo-1618366712010-f4ae9c647dcb?w=500"}},
	{"gaming", catalog.ProductRequest{Name: "Neon Gaming Mouse", Description: "High DPI gaming mouse with customizable lighting", Price: coins(800), XPReward: 80, Stock: 100,
		ImageURL: "https://images.unsplash.com/photo-1527814050087-3793815479db?w=500"}},
	{"clothing", catalog.ProductRequest{Name: "TSMarket Hoodie", Description: "Premium gaming hoodie with dragon logo", Price: coins(2000), XPReward: 200, Stock: 30,
		Sizes: []string{"S", "M", "L", "XL", "XXL"}, ImageURL: "https://images.unsplash.com/photo-1556821840-3a63f95609a7?w=500"}},
	{"clothing", catalog.ProductRequest{Name: "Gaming T-Shirt", Description: "Comfortable cotton t-shirt for gamers", Price: coins(1000), XPReward: 100, Stock: 75,
		Sizes: []string{"S", "M", "L", "XL"}, ImageURL: "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=500"}},
	{"gaming", catalog.ProductRequest{Name: "RGB Keyboard", Description: "Mechanical gaming keyboard with Cherry MX switches", Price: coins(2500), XPReward: 250, Stock: 40,
		ImageURL: "https://images.unsplash.com/photo-1511467687858-23d96c32e4ae?w=500"}},
	{"accessories", catalog.ProductRequest{Name: "Gaming Mousepad XL", Description: "Extended RGB mousepad for full desk coverage", Price: coins(600), XPReward: 60, Stock: 200,
		ImageURL: "https://images.unsplash.com/photo-1616588589676-62b3bd4ff6d2?w=500"}},
	{"collectibles", catalog.ProductRequest{Name: "Dragon Figurine", Description: "Limited edition TSMarket dragon collectible", Price: coins(5000), XPReward: 500, Stock: 10,
		ImageURL: "https://images.unsplash.com/photo-1578662996442-48f60103fc96?w=500"}},
	{"clothing", catalog.ProductRequest{Name: "Gaming Cap", Description: "Snapback cap with embroidered dragon", Price: coins(700), XPReward: 70, Stock: 60,
		Sizes: []string{"One Size"}, ImageURL: "https://images.unsplash.com/photo-1588850561407-ed78c282e89b?w=500"}},
}

var seedRewards = []reward.CreateRequest{
	{LevelRequired: 2, Name: "Welcome Bonus", Description: "50 coins for reaching level 2", RewardType: reward.TypeCoins, Value: coins(50)},
	{LevelRequired: 5, Name: "Rising Star", Description: "100 coins for reaching level 5", RewardType: reward.TypeCoins, Value: coins(100)},
	{LevelRequired: 10, Name: "Dragon's Blessing", Description: "500 coins exclusive reward!", RewardType: reward.TypeCoins, Value: coins(500), IsExclusive: true},
	{LevelRequired: 15, Name: "XP Boost", Description: "200 bonus XP", RewardType: reward.TypeXPBoost, Value: coins(200)},
	{LevelRequired: 20, Name: "Dragon Master", Description: "1000 coins exclusive reward!", RewardType: reward.TypeCoins, Value: coins(1000), IsExclusive: true},
}

var seedPrizes = []wheel.PrizeRequest{
	{Name: "10 Coins", PrizeType: wheel.PrizeCoins, Value: coins(10), Probability: 0.3, Color: "#0D9488"},
	{Name: "25 Coins", PrizeType: wheel.PrizeCoins, Value: coins(25), Probability: 0.25, Color: "#14B8A6"},
	{Name: "50 Coins", PrizeType: wheel.PrizeCoins, Value: coins(50), Probability: 0.2, Color: "#F0ABFC"},
	{Name: "100 Coins", PrizeType: wheel.PrizeCoins, Value: coins(100), Probability: 0.1, Color: "#FFD700"},
	{Name: "50 XP", PrizeType: wheel.PrizeXP, Value: coins(50), Probability: 0.1, Color: "#FF4D4D"},
	{Name: "200 Coins JACKPOT!", PrizeType: wheel.PrizeCoins, Value: coins(200), Probability: 0.05, Color: "#FFD700"},
}

var seedCodes = []topup.CreateCodeRequest{
	{Code: "WELCOME100", Amount: coins(100)},
	{Code: "DRAGON500", Amount: coins(500)},
	{Code: "GAMING1000", Amount: coins(1000)},
}

const (
	adminXP    = 5000
	adminSpins = 5
)
