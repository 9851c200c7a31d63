package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"patient_id",
			"title",
			"location",
			"status",
			"start_at",
			"end_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"patient_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"location": bson.M{
				"bsonType": "string",
				"enum": []string{
					"remote",
					"televisit",
					"clinic",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"scheduled",
					"arrived",
					"cancelled",
				},
			},

			"start_at": bson.M{
				"bsonType": "date",
			},

			"end_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
