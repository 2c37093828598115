package entity

import "github.com/ecosteps/backend/pkg/enum"

type ActivityType string

var (
	TrashPicking           = enum.New(ActivityType("trash_picking"))
	PubTransportInsteadCar = enum.New(ActivityType("pub_transport_instead_of_car"))
	BikeInsteadCar         = enum.New(ActivityType("bike_instead_of_car"))
	WalkInsteadCar         = enum.New(ActivityType("walk_instead_of_car"))
	TrainInsteadPlane      = enum.New(ActivityType("train_instead_of_plane"))
	PlantTree              = enum.New(ActivityType("plant_tree"))
	PlantOther             = enum.New(ActivityType("plant_other"))
	BuyLocal               = enum.New(ActivityType("buy_local"))
	BuySecondHand          = enum.New(ActivityType("buy_second_hand"))
	SellUnused             = enum.New(ActivityType("sell_unused"))
	ReduceWater            = enum.New(ActivityType("reduce_water"))
	ReduceEnergy           = enum.New(ActivityType("reduce_energy"))
	ReduceFoodWaste        = enum.New(ActivityType("reduce_food_waste"))
	OtherActivity          = enum.New(ActivityType("other"))
)

var activityPoints = map[ActivityType]uint64{
	TrashPicking:           150,
	PubTransportInsteadCar: 100,
	BikeInsteadCar:         100,
	WalkInsteadCar:         100,
	TrainInsteadPlane:      150,
	PlantTree:              200,
	PlantOther:             100,
	BuyLocal:               50,
	BuySecondHand:          100,
	SellUnused:             50,
	ReduceWater:            50,
	ReduceEnergy:           50,
	ReduceFoodWaste:        50,
	OtherActivity:          25,
}

// PointsOf returns the fixed point value of an activity type. Unknown types
// are worth nothing.
func PointsOf(t ActivityType) uint64 {
	return activityPoints[t]
}

type Activity struct {
	SnowFlakeBase

	UserID string `gorm:"index"`
	User   User   `gorm:"foreignKey:UserID"`

	Type    ActivityType
	Title   string
	Caption string

	// PointsGained and Streak are snapshots taken at creation. They do not
	// change if the point table changes later.
	PointsGained uint64
	Streak       uint64

	// Images holds blob references in display order.
	Images Array[string] `gorm:"type:text"`
}
