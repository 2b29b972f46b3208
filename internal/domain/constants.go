package domain

// RewardStatus is the per-(user, reward) lifecycle state.
type RewardStatus string

const (
	StatusLocked        RewardStatus = "LOCKED"
	StatusUnlocked      RewardStatus = "UNLOCKED"
	StatusRevealStarted RewardStatus = "REVEAL_STARTED"
	StatusRedeemed      RewardStatus = "REDEEMED"
)

// RewardType is what a partner or platform reward grants.
type RewardType string

const (
	RewardDiscount    RewardType = "discount"
	RewardFreeCoffee  RewardType = "free_coffee"
	RewardMerchandise RewardType = "merchandise"
	RewardPoints      RewardType = "points"
	RewardBadge       RewardType = "badge"
)

// RewardSource says who issues the benefit behind a reward.
type RewardSource string

const (
	SourceManual       RewardSource = "MANUAL"
	SourcePOSCode      RewardSource = "POS_CODE"
	SourcePOSAutomated RewardSource = "POS_AUTOMATED"
)

// RewardKind separates platform rewards from partner rewards redeemed in a shop.
type RewardKind string

const (
	KindPlatform RewardKind = "PLATFORM"
	KindPartner  RewardKind = "PARTNER"
)

// Metric names a user counter that drives reward progress and achievements.
type Metric string

const (
	MetricCheckins        Metric = "checkins"
	MetricShops           Metric = "shops"
	MetricShopCheckins    Metric = "shop_checkins"
	MetricStreak          Metric = "streak"
	MetricTrails          Metric = "trails"
	MetricTrail           Metric = "trail"
	MetricPoints          Metric = "points"
	MetricPOSTransactions Metric = "pos_transactions"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type PostType string

const (
	PostCheckin       PostType = "checkin"
	PostTrailComplete PostType = "trail_complete"
	PostReward        PostType = "reward"
	PostReview        PostType = "review"
)

// XPPerLevel is the xp span of one level.
const XPPerLevel = 500

// DefaultRevealWindowSeconds bounds how long a partner code stays on screen.
const DefaultRevealWindowSeconds = 120
