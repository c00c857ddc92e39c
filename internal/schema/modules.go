package schema

import (
	appErrors "github.com/noah-isme/estate-admin-api/pkg/errors"
)

// Module names.
const (
	ModuleLeads      = "leads"
	ModuleDevelopers = "developers"
	ModuleContacts   = "contacts"
	ModuleProjects   = "projects"
	ModuleInventory  = "inventory"
	ModuleLand       = "land"
	ModuleEnquiries  = "enquiries"
)

var registry = map[string]*Schema{
	ModuleLeads:      leadsSchema,
	ModuleDevelopers: developersSchema,
	ModuleContacts:   contactsSchema,
	ModuleProjects:   projectsSchema,
	ModuleInventory:  inventorySchema,
	ModuleLand:       landSchema,
	ModuleEnquiries:  enquiriesSchema,
}

// Get resolves a module name to its schema.
func Get(module string) (*Schema, error) {
	s, ok := registry[module]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownModule, "unknown module: "+module)
	}
	return s, nil
}

// Modules lists the registered module names in a fixed order.
func Modules() []string {
	return []string{
		ModuleLeads, ModuleDevelopers, ModuleContacts,
		ModuleProjects, ModuleInventory, ModuleLand, ModuleEnquiries,
	}
}

var leadsSchema = &Schema{
	Module: ModuleLeads,
	Fields: []Field{
		{Name: "inquiryNo", Required: true},
		{Name: "inquiryDate", Required: true},
		{Name: "clientCompany", Required: true},
		{Name: "contactPerson", Required: true},
		{Name: "contactNo"},
		{Name: "email"},
		{Name: "designation"},
		{Name: "typeOfPlace", Enum: []string{"Office", "Retail", "Warehouse", "Coworking", "Industrial", "Other"}},
		{Name: "spaceRequirement"},
		{Name: "transactionType", Enum: []string{"Lease", "Sale", "Both"}},
		{Name: "budget", Numeric: true},
		{Name: "city"},
		{Name: "locationPreference"},
		{Name: "firstContactDate"},
		{Name: "leadManagedBy"},
		{Name: "leadManagerName"},
		{Name: "status", Enum: []string{"New", "In Progress", "Qualified", "Closed Won", "Closed Lost", "Follow Up"}},
		{Name: "optionShared", Enum: []string{"Yes", "No"}},
		{Name: "lastContactDate"},
		{Name: "nextActionPlan"},
		{Name: "actionDate"},
		{Name: "remark"},
	},
	Searchable:    []string{"inquiryNo", "clientCompany", "contactPerson", "email", "city"},
	CategoryField: "status",
	ListField:     "clientCompany",
	DefaultSort:   "inquiryDate",
}

var developersSchema = &Schema{
	Module: ModuleDevelopers,
	Fields: []Field{
		{Name: "type", Required: true, Enum: []string{"corporate", "coworking", "warehouse", "malls"}},
		{Name: "developerName", Required: true},
		{Name: "grade", Enum: []string{"A", "B", "C"}},
		{Name: "commonContact"},
		{Name: "emailId"},
		{Name: "websiteLink"},
		{Name: "linkedInLink"},
		{Name: "hoCity"},
		{Name: "presenceCity"},
		{Name: "noOfBuildings", Numeric: true},
		{Name: "noOfCoworking", Numeric: true},
		{Name: "noOfWarehouses", Numeric: true},
		{Name: "noOfMalls", Numeric: true},
	},
	Searchable:    []string{"developerName", "emailId", "hoCity", "commonContact"},
	CategoryField: "type",
	ListField:     "developerName",
	DefaultSort:   "developerName",
}

var contactsSchema = &Schema{
	Module: ModuleContacts,
	Fields: []Field{
		{Name: "category", Required: true, Enum: []string{"client", "developer", "individual_owner"}},
		{Name: "companyName"},
		{Name: "developerName"},
		{Name: "individualOwnerName"},
		{Name: "industry"},
		{Name: "type"},
		{Name: "contactPerson", Required: true},
		{Name: "designation"},
		{Name: "departmentDesignation"},
		{Name: "contactNo", Required: true},
		{Name: "alternateNo"},
		{Name: "emailId"},
		{Name: "linkedInLink"},
		{Name: "city"},
		{Name: "location"},
	},
	Searchable:    []string{"contactPerson", "companyName", "developerName", "individualOwnerName", "emailId", "contactNo", "city"},
	CategoryField: "category",
	ListField:     "contactPerson",
	DefaultSort:   "contactPerson",
}

var projectsSchema = &Schema{
	Module: ModuleProjects,
	Fields: []Field{
		{Name: "type", Required: true, Enum: []string{"corporate_building", "coworking_space", "warehouse", "retail_mall"}},
		{Name: "name", Required: true},
		{Name: "grade", Enum: []string{"A", "B", "C"}},
		{Name: "developerOwner"},
		{Name: "contactNo"},
		{Name: "alternateNo"},
		{Name: "email"},
		{Name: "city"},
		{Name: "location"},
		{Name: "googleLocation"},
		{Name: "noOfFloors", Numeric: true},
		{Name: "floorPlate"},
		{Name: "noOfSeats", Numeric: true},
		{Name: "availabilityOfSeats", Numeric: true},
		{Name: "perOpenDeskCost", Numeric: true},
		{Name: "perDedicatedDeskCost", Numeric: true},
		{Name: "setupFees", Numeric: true},
		{Name: "noOfWarehouses", Numeric: true},
		{Name: "warehouseSize"},
		{Name: "totalArea"},
		{Name: "efficiency"},
		{Name: "floorPlateArea"},
		{Name: "rentPerSqft", Numeric: true},
		{Name: "camPerSqft", Numeric: true},
		{Name: "amenities"},
		{Name: "remark"},
		{Name: "status", Enum: []string{"Active", "Inactive", "Under Construction"}},
	},
	Searchable:    []string{"name", "developerOwner", "city", "location"},
	CategoryField: "type",
	ListField:     "name",
	DefaultSort:   "name",
}

var inventorySchema = &Schema{
	Module: ModuleInventory,
	Fields: []Field{
		{Name: "type", Required: true, Enum: []string{"corporate_building", "coworking_space", "warehouse", "retail_mall"}},
		{Name: "name", Required: true},
		{Name: "grade", Enum: []string{"A", "B", "C"}},
		{Name: "developerOwnerName"},
		{Name: "contactNo"},
		{Name: "alternateContactNo"},
		{Name: "emailId"},
		{Name: "city"},
		{Name: "location"},
		{Name: "googleLocation"},
		{Name: "saleableArea"},
		{Name: "carpetArea"},
		{Name: "floor"},
		{Name: "height"},
		{Name: "typeOfFlooring"},
		{Name: "flooringSize"},
		{Name: "sideHeight"},
		{Name: "centreHeight"},
		{Name: "canopy"},
		{Name: "fireSprinklers"},
		{Name: "frontage"},
		{Name: "noOfSaleableSeats", Numeric: true},
		{Name: "terrace"},
		{Name: "specification"},
		{Name: "status", Enum: []string{"Available", "Occupied", "Under Maintenance"}},
		{Name: "rentPerSqft", Numeric: true},
		{Name: "costPerSeat", Numeric: true},
		{Name: "camPerSqft", Numeric: true},
		{Name: "setupFeesInventory", Numeric: true},
		{Name: "agreementPeriod"},
		{Name: "lockInPeriod"},
		{Name: "noOfCarParks", Numeric: true},
	},
	Searchable:    []string{"name", "developerOwnerName", "city", "location", "status"},
	CategoryField: "type",
	ListField:     "name",
	DefaultSort:   "name",
}

var landSchema = &Schema{
	Module: ModuleLand,
	Fields: []Field{
		{Name: "landParcelName", Required: true},
		{Name: "location", Required: true},
		{Name: "city"},
		{Name: "googleLocation"},
		{Name: "areaInSqm", Numeric: true, Required: true},
		{Name: "zone", Enum: []string{"Commercial", "Residential", "Industrial", "Mixed Use"}},
		{Name: "title"},
		{Name: "roadWidth"},
		{Name: "connectivity"},
		{Name: "advantages"},
		// Nested upload-status map keyed by document kind, e.g.
		// {"propertyCard": {"uploaded": true, "fileName": "pc.pdf"}}.
		{Name: "documents"},
	},
	Searchable:    []string{"landParcelName", "location", "city", "title"},
	CategoryField: "zone",
	ListField:     "landParcelName",
	DefaultSort:   "landParcelName",
}

var enquiriesSchema = &Schema{
	Module: ModuleEnquiries,
	Fields: []Field{
		{Name: "subject", Required: true},
		{Name: "enquiryType", Enum: []string{"purchase", "rental", "investment", "general"}},
		{Name: "status", Enum: []string{"open", "in_progress", "resolved", "closed"}},
		{Name: "customerName"},
		{Name: "customerEmail"},
		{Name: "customerPhone"},
		{Name: "budget", Numeric: true},
		{Name: "preferredLocation"},
		{Name: "requirements"},
		{Name: "description"},
		{Name: "response"},
		{Name: "assignedEmployee"},
	},
	Searchable:    []string{"subject", "customerName", "customerEmail"},
	CategoryField: "enquiryType",
	ListField:     "subject",
	DefaultSort:   "subject",
}
