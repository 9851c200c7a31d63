package validators

import "go.mongodb.org/mongo-driver/bson"

// SlotCapacityValidator is the last line of defense for the ledger: the
// counter can never go negative regardless of application bugs. The upper
// bound is enforced by the application's conditional writes because the
// capacity is configurable.
var SlotCapacityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date",
			"slot_start",
			"booked_count",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"date": bson.M{
				"bsonType":  "string",
				"minLength": 10,
				"maxLength": 10,
			},

			"slot_start": bson.M{
				"bsonType": "date",
			},

			"booked_count": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
