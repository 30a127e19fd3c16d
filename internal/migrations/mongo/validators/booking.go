package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"owner_id",
			"walker_id",
			"dog_ids",
			"scheduled_at",
			"duration_minutes",
			"status",
			"version",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"walker_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"dog_ids": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 10,
				"items": bson.M{
					"bsonType":  "string",
					"minLength": 1,
				},
			},

			"scheduled_at": bson.M{
				"bsonType": "date",
			},

			"duration_minutes": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  15,
				"maximum":  240,
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"payment_id": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"in_progress",
					"completed",
					"cancelled",
				},
			},

			"cancellation_reason": bson.M{
				"bsonType": "string",
				"enum": []string{
					"owner_request",
					"payment_failed",
					"payment_error",
				},
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
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
